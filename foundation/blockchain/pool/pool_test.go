package pool_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/fault"
	"github.com/ardanlabs/ledger/foundation/blockchain/pool"
	"github.com/shopspring/decimal"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func join(t *testing.T, p *pool.Pool, id string, rate int64) {
	t.Helper()

	if _, err := p.AddMiner(id, pool.MinerInfo{HashRate: decimal.NewFromInt(rate)}); err != nil {
		t.Fatalf("\t%s\tShould be able to add miner %s: %s", failed, id, err)
	}
}

func shares(t *testing.T, p *pool.Pool, id string, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		if _, err := p.SubmitShare(id, pool.Share{}); err != nil {
			t.Fatalf("\t%s\tShould be able to submit a share for %s: %s", failed, id, err)
		}
	}
}

func TestDistribute(t *testing.T) {
	type table struct {
		name   string
		shares map[string]int
		total  string
		exp    map[string]string
	}

	tt := []table{
		{
			name:   "three-to-one",
			shares: map[string]int{"m1": 3, "m2": 1},
			total:  "40",
			exp:    map[string]string{"m1": "30", "m2": "10"},
		},
		{
			name:   "thirds",
			shares: map[string]int{"a": 1, "b": 1, "c": 1},
			total:  "10",
			exp:    map[string]string{"a": "3.34", "b": "3.33", "c": "3.33"},
		},
		{
			name:   "largest-remainder",
			shares: map[string]int{"a": 1, "b": 2},
			total:  "0.05",
			exp:    map[string]string{"a": "0.02", "b": "0.03"},
		},
		{
			name:   "idle-miner",
			shares: map[string]int{"a": 2, "idle": 0},
			total:  "7.777",
			exp:    map[string]string{"a": "7.78"},
		},
	}

	t.Log("Given the need to split rewards by shares.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				p := pool.New(pool.Config{})

				for id, n := range tst.shares {
					join(t, p, id, 1)
					shares(t, p, id, n)
				}

				total := decimal.RequireFromString(tst.total)
				payouts, err := p.DistributeRewards(total)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to distribute: %s", failed, testID, err)
				}

				if len(payouts) != len(tst.exp) {
					t.Fatalf("\t%s\tTest %d:\tShould pay %d miners, got %d.", failed, testID, len(tst.exp), len(payouts))
				}

				sum := decimal.Zero
				for _, po := range payouts {
					if !po.Amount.Equal(decimal.RequireFromString(tst.exp[po.MinerID])) {
						t.Fatalf("\t%s\tTest %d:\tShould pay %s to %s, got %s.", failed, testID, tst.exp[po.MinerID], po.MinerID, po.Amount)
					}
					sum = sum.Add(po.Amount)
				}
				t.Logf("\t%s\tTest %d:\tShould pay every miner its portion.", success, testID)

				if !sum.Equal(total.Round(2)) {
					t.Fatalf("\t%s\tTest %d:\tShould pay out exactly the total, got %s.", failed, testID, sum)
				}
				t.Logf("\t%s\tTest %d:\tShould pay out exactly the total.", success, testID)

				for _, m := range p.Miners() {
					if m.Shares != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould reset shares for %s.", failed, testID, m.ID)
					}
				}
				if p.Stats().TotalShares != 0 {
					t.Fatalf("\t%s\tTest %d:\tShould reset the pool total.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould reset every share count.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func TestMembership(t *testing.T) {
	t.Log("Given the need to manage pool membership.")
	{
		p := pool.New(pool.Config{})

		if _, err := p.AddMiner("", pool.MinerInfo{}); !fault.Is(err, fault.KindValidation) {
			t.Fatalf("\t%s\tShould reject a miner without an id: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a miner without an id.", success)

		if _, err := p.SubmitShare("ghost", pool.Share{}); !fault.Is(err, fault.KindNotFound) {
			t.Fatalf("\t%s\tShould reject a share from an unknown miner: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a share from an unknown miner.", success)

		join(t, p, "m1", 100)
		join(t, p, "m2", 50)
		shares(t, p, "m1", 2)
		shares(t, p, "m2", 3)

		join(t, p, "m1", 120)
		m1, _ := p.Miner("m1")
		if m1.Shares != 2 || !m1.HashRate.Equal(decimal.NewFromInt(120)) {
			t.Fatalf("\t%s\tShould keep shares and refresh info on rejoin: %+v", failed, m1)
		}
		t.Logf("\t%s\tShould keep shares and refresh info on rejoin.", success)

		stats := p.Stats()
		if stats.TotalMiners != 2 || stats.TotalShares != 5 || !stats.HashRate.Equal(decimal.NewFromInt(170)) {
			t.Fatalf("\t%s\tShould report the pool totals: %+v", failed, stats)
		}
		t.Logf("\t%s\tShould report the pool totals.", success)

		if err := p.RemoveMiner("m2"); err != nil {
			t.Fatalf("\t%s\tShould be able to remove a miner: %s", failed, err)
		}
		if p.Stats().TotalShares != 2 {
			t.Fatalf("\t%s\tShould drop the removed miner's shares, got %d.", failed, p.Stats().TotalShares)
		}
		t.Logf("\t%s\tShould drop the removed miner's shares.", success)

		if err := p.RemoveMiner("m2"); !fault.Is(err, fault.KindNotFound) {
			t.Fatalf("\t%s\tShould report removing an unknown miner: %v", failed, err)
		}
		t.Logf("\t%s\tShould report removing an unknown miner.", success)

		payouts, err := pool.New(pool.Config{}).DistributeRewards(decimal.NewFromInt(10))
		if err != nil || len(payouts) != 0 {
			t.Fatalf("\t%s\tShould distribute nothing without shares: %v %v", failed, err, payouts)
		}
		t.Logf("\t%s\tShould distribute nothing without shares.", success)
	}
}

func TestConcurrentShares(t *testing.T) {
	t.Log("Given the need to count shares submitted concurrently.")
	{
		p := pool.New(pool.Config{})

		const miners = 10
		const perMiner = 200

		for i := 0; i < miners; i++ {
			join(t, p, fmt.Sprintf("m%d", i), 1)
		}

		var wg sync.WaitGroup
		wg.Add(miners)

		var mu sync.Mutex
		paid := decimal.Zero
		var paidShares uint64

		for i := 0; i < miners; i++ {
			i := i
			go func() {
				defer wg.Done()
				id := fmt.Sprintf("m%d", i)
				for j := 0; j < perMiner; j++ {
					p.SubmitShare(id, pool.Share{Nonce: uint64(j)})

					if i == 0 && j%50 == 0 {
						payouts, _ := p.DistributeRewards(decimal.NewFromInt(1000))
						mu.Lock()
						for _, po := range payouts {
							paid = paid.Add(po.Amount)
							paidShares += po.Shares
						}
						mu.Unlock()
					}
				}
			}()
		}

		wg.Wait()

		remaining := p.Stats().TotalShares

		var perMinerSum uint64
		for _, m := range p.Miners() {
			perMinerSum += m.Shares
		}

		if perMinerSum != remaining {
			t.Fatalf("\t%s\tShould keep the pool total equal to the miner shares: %d != %d", failed, remaining, perMinerSum)
		}
		t.Logf("\t%s\tShould keep the pool total equal to the miner shares.", success)

		if paidShares+remaining != miners*perMiner {
			t.Fatalf("\t%s\tShould count every share exactly once: paid %d remaining %d", failed, paidShares, remaining)
		}
		t.Logf("\t%s\tShould count every share exactly once.", success)

		if !paid.Mod(decimal.NewFromInt(1000)).IsZero() {
			t.Fatalf("\t%s\tShould pay whole rounds, got %s.", failed, paid)
		}
		t.Logf("\t%s\tShould pay whole rounds.", success)
	}
}
