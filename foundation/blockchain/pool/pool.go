// Package pool maintains the mining pool: the registry of miners, the
// shares they report and the proportional split of a reward among them.
package pool

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/fault"
	"github.com/ardanlabs/ledger/foundation/blockchain/reward"
	"github.com/shopspring/decimal"
)

// ErrMinerNotFound is returned for an id that isn't registered.
var ErrMinerNotFound = errors.New("miner not found")

// EventHandler defines a function that is called when events
// occur in the pool.
type EventHandler func(v string, args ...any)

// Config represents the configuration for the pool.
type Config struct {
	Now       func() time.Time
	EvHandler EventHandler
}

// Pool manages the miners and their shares. One mutex covers the miners
// and the total so a share is always counted in both or neither.
type Pool struct {
	now       func() time.Time
	evHandler EventHandler

	mu          sync.Mutex
	miners      map[string]*Miner
	totalShares uint64
}

// New constructs an empty pool.
func New(cfg Config) *Pool {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Pool{
		now:       now,
		evHandler: ev,
		miners:    make(map[string]*Miner),
	}
}

// AddMiner registers the miner. A miner that rejoins keeps its shares and
// has its reported info refreshed.
func (p *Pool) AddMiner(id string, info MinerInfo) (Miner, error) {
	const op = "pool.join"

	if id == "" {
		return Miner{}, fault.Validationf(op, "miner id is required")
	}

	if info.HashRate.IsNegative() {
		return Miner{}, fault.Validationf(op, "hash rate can't be negative")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now().UTC()

	m, exists := p.miners[id]
	if !exists {
		m = &Miner{ID: id, JoinedAt: now}
		p.miners[id] = m
	}
	m.HashRate = info.HashRate
	m.LastActivity = now

	p.evHandler("event: pool: miner joined: id[%s]: rejoin[%t]: miners[%d]", id, exists, len(p.miners))

	return *m, nil
}

// RemoveMiner unregisters the miner. Its outstanding shares leave the pool
// total with it.
func (p *Pool) RemoveMiner(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, exists := p.miners[id]
	if !exists {
		return fault.NotFound("pool.leave", ErrMinerNotFound)
	}

	p.totalShares -= m.Shares
	delete(p.miners, id)

	p.evHandler("event: pool: miner left: id[%s]: forfeited[%d]: miners[%d]", id, m.Shares, len(p.miners))

	return nil
}

// SubmitShare credits one share to the miner and the pool.
func (p *Pool) SubmitShare(minerID string, share Share) (ShareReceipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, exists := p.miners[minerID]
	if !exists {
		return ShareReceipt{}, fault.NotFound("pool.share", ErrMinerNotFound)
	}

	m.Shares++
	m.LastActivity = p.now().UTC()
	p.totalShares++

	return ShareReceipt{
		Accepted:    true,
		Shares:      m.Shares,
		TotalShares: p.totalShares,
	}, nil
}

// DistributeRewards splits total among the miners holding shares in
// proportion to their shares, then resets every share count. Allocation
// and reset happen under one lock so no share lands between them.
//
// The total is rounded to the smallest token unit. Each payout is truncated
// to that unit and the leftover units go one at a time to the largest
// truncated remainders, ties broken by miner id, so the payouts always sum
// to the rounded total.
func (p *Pool) DistributeRewards(total decimal.Decimal) ([]Payout, error) {
	const op = "pool.distribute"

	if total.IsNegative() {
		return nil, fault.Validationf(op, "reward can't be negative")
	}

	total = total.Round(reward.Places)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.totalShares == 0 {
		return []Payout{}, nil
	}

	type portion struct {
		payout    Payout
		remainder decimal.Decimal
	}

	ids := make([]string, 0, len(p.miners))
	for id, m := range p.miners {
		if m.Shares > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	shareTotal := decimal.NewFromInt(int64(p.totalShares))

	portions := make([]portion, len(ids))
	allocated := decimal.Zero
	for i, id := range ids {
		m := p.miners[id]

		exact := total.Mul(decimal.NewFromInt(int64(m.Shares))).Div(shareTotal)
		amount := exact.Truncate(reward.Places)

		portions[i] = portion{
			payout:    Payout{MinerID: id, Shares: m.Shares, Amount: amount},
			remainder: exact.Sub(amount),
		}
		allocated = allocated.Add(amount)
	}

	// Hand out the leftover units by largest remainder. The ids are
	// already sorted so a stable sort keeps ties in id order.
	order := make([]int, len(portions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return portions[order[a]].remainder.GreaterThan(portions[order[b]].remainder)
	})

	unit := decimal.New(1, -reward.Places)
	leftover := total.Sub(allocated)
	for i := 0; leftover.IsPositive(); i++ {
		idx := order[i%len(order)]
		portions[idx].payout.Amount = portions[idx].payout.Amount.Add(unit)
		leftover = leftover.Sub(unit)
	}

	payouts := make([]Payout, len(portions))
	for i, pt := range portions {
		payouts[i] = pt.payout
	}

	for _, m := range p.miners {
		m.Shares = 0
	}
	p.totalShares = 0

	p.evHandler("event: pool: distributed: total[%s]: miners[%d]", total, len(payouts))

	return payouts, nil
}

// Stats returns a snapshot of the pool. The hash rate is the sum of the
// rates the miners reported.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	rate := decimal.Zero
	for _, m := range p.miners {
		rate = rate.Add(m.HashRate)
	}

	return Stats{
		TotalMiners: len(p.miners),
		TotalShares: p.totalShares,
		HashRate:    rate,
	}
}

// Miners returns every registered miner sorted by id.
func (p *Pool) Miners() []Miner {
	p.mu.Lock()
	defer p.mu.Unlock()

	miners := make([]Miner, 0, len(p.miners))
	for _, m := range p.miners {
		miners = append(miners, *m)
	}

	sort.Slice(miners, func(i, j int) bool {
		return miners[i].ID < miners[j].ID
	})

	return miners
}

// Miner returns the specified miner.
func (p *Pool) Miner(id string) (Miner, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, exists := p.miners[id]
	if !exists {
		return Miner{}, fault.NotFound("pool.miner", ErrMinerNotFound)
	}

	return *m, nil
}
