package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/app/services/node/handlers"
	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/knowledge"
	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
	"github.com/ardanlabs/ledger/foundation/blockchain/pool"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/logger"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// viewerOrigin is the only browser origin the test node accepts.
const viewerOrigin = "http://viewer.ledger.test"

type node struct {
	public  http.Handler
	private http.Handler
	evts    *events.Events
}

func newNode(t *testing.T) node {
	t.Helper()

	g := genesis.Default()
	g.Difficulty = 1

	registry := knowledge.New(knowledge.Config{UniqueVerifiers: true})

	evts := events.New()
	t.Cleanup(evts.Shutdown)

	ev := func(v string, args ...any) {
		evts.Publish(fmt.Sprintf(v, args...))
	}

	st, err := state.New(state.Config{
		Genesis:   g,
		Storage:   memory.New(),
		Proofs:    registry,
		EvHandler: ev,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the ledger: %s", failed, err)
	}

	w := worker.Run(st, worker.Config{})
	t.Cleanup(func() { st.Shutdown() })

	ns, err := nameservice.New(t.TempDir())
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the name service: %s", failed, err)
	}

	cfg := handlers.MuxConfig{
		Shutdown:    make(chan os.Signal, 1),
		Log:         logger.NewNop(),
		State:       st,
		Worker:      w,
		Registry:    registry,
		Pool:        pool.New(pool.Config{EvHandler: ev}),
		NS:          ns,
		Evts:        evts,
		MineWait:    10 * time.Second,
		PoolAddress: "pool",
		CORSOrigins: []string{viewerOrigin},
	}

	return node{
		public:  handlers.PublicMux(cfg),
		private: handlers.PrivateMux(cfg),
		evts:    evts,
	}
}

func call(t *testing.T, h http.Handler, method string, path string, body any, exp int, resp any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("\t%s\tShould be able to encode the request: %s", failed, err)
		}
	}

	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != exp {
		t.Logf("\t%s\tbody: %s", failed, w.Body.String())
		t.Fatalf("\t%s\tShould receive a status code of %d for %s %s : %d", failed, exp, method, path, w.Code)
	}
	t.Logf("\t%s\tShould receive a status code of %d for %s %s.", success, exp, method, path)

	if resp == nil {
		return
	}

	if err := json.NewDecoder(w.Body).Decode(resp); err != nil {
		t.Fatalf("\t%s\tShould be able to decode the response for %s %s: %s", failed, method, path, err)
	}
}

// =============================================================================

func TestMineFlow(t *testing.T) {
	n := newNode(t)

	t.Log("Given the need to mine pending transfers over the web api.")
	{
		var stats state.Stats
		call(t, n.public, http.MethodGet, "/v1/stats", nil, http.StatusOK, &stats)
		if stats.Blocks != 1 || !stats.TotalSupply.IsZero() || !stats.IsValid {
			t.Fatalf("\t%s\tShould start with only the genesis block: %+v", failed, stats)
		}
		t.Logf("\t%s\tShould start with only the genesis block.", success)

		tx := map[string]any{"from": "alice", "to": "bob", "amount": "10"}
		call(t, n.public, http.MethodPost, "/v1/tx/submit", tx, http.StatusCreated, nil)

		var pending []database.Tx
		call(t, n.public, http.MethodGet, "/v1/tx/pending", nil, http.StatusOK, &pending)
		if len(pending) != 1 {
			t.Fatalf("\t%s\tShould have a single pending transaction: %d", failed, len(pending))
		}
		t.Logf("\t%s\tShould have a single pending transaction.", success)

		var res state.MineResult
		call(t, n.public, http.MethodPost, "/v1/mine", map[string]any{"miner_address": "miner"}, http.StatusOK, &res)

		if exp := decimal.NewFromInt(15); !res.Reward.Equal(exp) {
			t.Fatalf("\t%s\tShould mint %s for a pow only block: %s", failed, exp, res.Reward)
		}
		t.Logf("\t%s\tShould mint 15 for a pow only block.", success)

		if len(res.Block.Trans) != 2 || res.Block.Header.Number != 1 {
			t.Fatalf("\t%s\tShould mine block 1 with the transfer and the mint: %+v", failed, res.Block)
		}
		t.Logf("\t%s\tShould mine block 1 with the transfer and the mint.", success)

		call(t, n.public, http.MethodGet, "/v1/tx/pending", nil, http.StatusOK, &pending)
		if len(pending) != 0 {
			t.Fatalf("\t%s\tShould clear the mined transaction from pending: %d", failed, len(pending))
		}
		t.Logf("\t%s\tShould clear the mined transaction from pending.", success)

		var bal struct {
			Address string          `json:"address"`
			Balance decimal.Decimal `json:"balance"`
		}
		call(t, n.public, http.MethodGet, "/v1/balances/bob", nil, http.StatusOK, &bal)
		if !bal.Balance.Equal(decimal.NewFromInt(10)) {
			t.Fatalf("\t%s\tShould credit bob with 10: %s", failed, bal.Balance)
		}
		t.Logf("\t%s\tShould credit bob with 10.", success)

		var blocks []database.Block
		call(t, n.public, http.MethodGet, "/v1/blocks?limit=1", nil, http.StatusOK, &blocks)
		if len(blocks) != 1 || blocks[0].Hash != res.Block.Hash {
			t.Fatalf("\t%s\tShould list the newest block first.", failed)
		}
		t.Logf("\t%s\tShould list the newest block first.", success)

		var proof state.TxProof
		path := fmt.Sprintf("/v1/blocks/1/proof/%s", res.Block.Trans[0].ID)
		call(t, n.public, http.MethodGet, path, nil, http.StatusOK, &proof)

		ok, err := merkle.Verify(proof.TxHash, proof.Proof, proof.MerkleRoot)
		if err != nil || !ok {
			t.Fatalf("\t%s\tShould return a proof that verifies against the merkle root: %v", failed, err)
		}
		t.Logf("\t%s\tShould return a proof that verifies against the merkle root.", success)

		call(t, n.public, http.MethodGet, "/v1/blocks/0/proof/nope", nil, http.StatusNotFound, nil)

		var status struct {
			LatestBlockNumber uint64 `json:"latest_block_number"`
			MiningAllowed     bool   `json:"mining_allowed"`
		}
		call(t, n.private, http.MethodGet, "/v1/node/status", nil, http.StatusOK, &status)
		if status.LatestBlockNumber != 1 || !status.MiningAllowed {
			t.Fatalf("\t%s\tShould report the mined block in the node status: %+v", failed, status)
		}
		t.Logf("\t%s\tShould report the mined block in the node status.", success)

		call(t, n.private, http.MethodPost, "/v1/node/chain/verify", nil, http.StatusOK, nil)
	}
}

func TestBadRequests(t *testing.T) {
	n := newNode(t)

	type table struct {
		name   string
		method string
		path   string
		body   any
		exp    int
	}

	tt := []table{
		{"zero-amount", http.MethodPost, "/v1/tx/submit", map[string]any{"from": "a", "to": "b", "amount": "0"}, http.StatusBadRequest},
		{"missing-from", http.MethodPost, "/v1/tx/submit", map[string]any{"to": "b", "amount": "1"}, http.StatusBadRequest},
		{"unknown-field", http.MethodPost, "/v1/tx/submit", map[string]any{"from": "a", "to": "b", "amount": "1", "fee": 1}, http.StatusBadRequest},
		{"mint-type", http.MethodPost, "/v1/tx/submit", map[string]any{"from": "a", "to": "b", "amount": "1", "type": "mining_reward"}, http.StatusBadRequest},
		{"missing-miner", http.MethodPost, "/v1/mine", map[string]any{}, http.StatusBadRequest},
		{"unknown-job", http.MethodGet, "/v1/mine/jobs/nope", nil, http.StatusNotFound},
		{"unknown-proof", http.MethodGet, "/v1/knowledge/nope", nil, http.StatusNotFound},
		{"bad-accuracy", http.MethodPost, "/v1/knowledge/submit", map[string]any{"type": "tutorial", "content": "x", "accuracy": 2}, http.StatusBadRequest},
		{"unknown-miner", http.MethodPost, "/v1/pool/share", map[string]any{"miner_id": "nope"}, http.StatusNotFound},
		{"negative-limit", http.MethodGet, "/v1/blocks?limit=-1", nil, http.StatusBadRequest},
	}

	t.Log("Given the need to reject bad requests with the right status.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				var resp errs.Response
				call(t, n.public, tst.method, tst.path, tst.body, tst.exp, &resp)

				if resp.Error == "" {
					t.Fatalf("\t%s\tTest %d:\tShould explain the failure.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould explain the failure: %s", success, testID, resp.Error)
			}

			t.Run(tst.name, f)
		}
	}
}

func TestKnowledgeMine(t *testing.T) {
	n := newNode(t)

	t.Log("Given the need to earn a knowledge bonus over the web api.")
	{
		proof := map[string]any{
			"type":       "tutorial",
			"content":    "Writing a websocket server",
			"difficulty": "advanced",
			"accuracy":   0.9,
			"impact":     99,
		}

		var submitted struct {
			ProofID string `json:"proof_id"`
		}
		call(t, n.public, http.MethodPost, "/v1/knowledge/submit", proof, http.StatusCreated, &submitted)

		var pending []knowledge.Proof
		call(t, n.public, http.MethodGet, "/v1/knowledge/list/pending", nil, http.StatusOK, &pending)
		if len(pending) != 1 || pending[0].ID != submitted.ProofID {
			t.Fatalf("\t%s\tShould list the proof as pending.", failed)
		}
		t.Logf("\t%s\tShould list the proof as pending.", success)

		for i, approved := range []bool{true, true, false} {
			vote := map[string]any{
				"proof_id":    submitted.ProofID,
				"verifier_id": fmt.Sprintf("verifier-%d", i),
				"approved":    approved,
			}
			call(t, n.public, http.MethodPost, "/v1/knowledge/verify", vote, http.StatusOK, nil)
		}

		dup := map[string]any{"proof_id": submitted.ProofID, "verifier_id": "verifier-0", "approved": true}
		call(t, n.public, http.MethodPost, "/v1/knowledge/verify", dup, http.StatusBadRequest, nil)

		var p knowledge.Proof
		call(t, n.public, http.MethodGet, "/v1/knowledge/"+submitted.ProofID, nil, http.StatusOK, &p)
		if p.Status != knowledge.StatusVerified {
			t.Fatalf("\t%s\tShould verify the proof with two of three approvals: %s", failed, p.Status)
		}
		t.Logf("\t%s\tShould verify the proof with two of three approvals.", success)

		mine := map[string]any{
			"miner_address":       "miner",
			"knowledge_proof_ids": []string{submitted.ProofID, "unknown"},
		}

		var res state.MineResult
		call(t, n.public, http.MethodPost, "/v1/mine", mine, http.StatusOK, &res)

		if res.KnowledgeBonusCount != 1 {
			t.Fatalf("\t%s\tShould count only the verified proof: %d", failed, res.KnowledgeBonusCount)
		}
		t.Logf("\t%s\tShould count only the verified proof.", success)

		if exp := decimal.RequireFromString("49.02"); !res.Reward.Equal(exp) {
			t.Fatalf("\t%s\tShould mint %s with the bonus: %s", failed, exp, res.Reward)
		}
		t.Logf("\t%s\tShould mint 49.02 with the bonus.", success)
	}
}

func TestPoolFlow(t *testing.T) {
	n := newNode(t)

	t.Log("Given the need to split rewards between pool miners.")
	{
		for _, id := range []string{"m1", "m2"} {
			call(t, n.public, http.MethodPost, "/v1/pool/join", map[string]any{"miner_id": id}, http.StatusOK, nil)
		}

		for i := 0; i < 3; i++ {
			call(t, n.public, http.MethodPost, "/v1/pool/share", map[string]any{"miner_id": "m1"}, http.StatusOK, nil)
		}
		call(t, n.public, http.MethodPost, "/v1/pool/share", map[string]any{"miner_id": "m2"}, http.StatusOK, nil)

		var stats struct {
			TotalMiners int    `json:"total_miners"`
			TotalShares uint64 `json:"total_shares"`
			ActiveJobs  int    `json:"active_jobs"`
		}
		call(t, n.public, http.MethodGet, "/v1/pool/stats", nil, http.StatusOK, &stats)
		if stats.TotalMiners != 2 || stats.TotalShares != 4 {
			t.Fatalf("\t%s\tShould count two miners and four shares: %+v", failed, stats)
		}
		t.Logf("\t%s\tShould count two miners and four shares.", success)

		var dist struct {
			Payouts      []pool.Payout `json:"payouts"`
			Transactions []database.Tx `json:"transactions"`
		}
		call(t, n.public, http.MethodPost, "/v1/pool/distribute", map[string]any{"total": "40", "pay": true}, http.StatusOK, &dist)

		exp := map[string]decimal.Decimal{
			"m1": decimal.NewFromInt(30),
			"m2": decimal.NewFromInt(10),
		}
		for _, po := range dist.Payouts {
			if !po.Amount.Equal(exp[po.MinerID]) {
				t.Fatalf("\t%s\tShould pay %s to %s: %s", failed, exp[po.MinerID], po.MinerID, po.Amount)
			}
		}
		t.Logf("\t%s\tShould split the total by shares.", success)

		if len(dist.Transactions) != 2 {
			t.Fatalf("\t%s\tShould submit a transfer per payout: %d", failed, len(dist.Transactions))
		}
		t.Logf("\t%s\tShould submit a transfer per payout.", success)

		call(t, n.public, http.MethodDelete, "/v1/pool/miners/m2", nil, http.StatusNoContent, nil)
		call(t, n.public, http.MethodDelete, "/v1/pool/miners/m2", nil, http.StatusNotFound, nil)
	}
}

func TestEventStream(t *testing.T) {
	n := newNode(t)

	srv := httptest.NewServer(n.public)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events"

	t.Log("Given the need to stream ledger events to websocket clients.")
	{
		hdr := http.Header{"Origin": {"http://elsewhere.test"}}
		if _, resp, err := websocket.DefaultDialer.Dial(url, hdr); err == nil || resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Fatalf("\t%s\tShould refuse a browser from an unknown origin: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse a browser from an unknown origin.", success)

		call(t, n.public, http.MethodGet, "/v1/events?kinds=weather", nil, http.StatusBadRequest, nil)

		hdr = http.Header{"Origin": {viewerOrigin}}
		conn, _, err := websocket.DefaultDialer.Dial(url+"?kinds=block", hdr)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to subscribe to block events: %s", failed, err)
		}
		defer conn.Close()
		t.Logf("\t%s\tShould be able to subscribe to block events.", success)

		// The subscription is registered by the handler after the upgrade.
		deadline := time.Now().Add(5 * time.Second)
		for n.evts.Subscribers() == 0 {
			if time.Now().After(deadline) {
				t.Fatalf("\t%s\tShould register the subscriber.", failed)
			}
			time.Sleep(5 * time.Millisecond)
		}

		call(t, n.public, http.MethodPost, "/v1/pool/join", map[string]any{"miner_id": "m1"}, http.StatusOK, nil)

		var res state.MineResult
		call(t, n.public, http.MethodPost, "/v1/mine", map[string]any{"miner_address": "miner"}, http.StatusOK, &res)

		conn.SetReadDeadline(time.Now().Add(5 * time.Second))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("\t%s\tShould receive an event after the mine: %s", failed, err)
		}

		body, ok := strings.CutPrefix(string(msg), "event: block: ")
		if !ok {
			t.Fatalf("\t%s\tShould receive only block events, got %q.", failed, msg)
		}
		t.Logf("\t%s\tShould receive only block events.", success)

		var blk database.Block
		if err := json.Unmarshal([]byte(body), &blk); err != nil || blk.Hash != res.Block.Hash {
			t.Fatalf("\t%s\tShould carry the mined block: %v", failed, err)
		}
		t.Logf("\t%s\tShould carry the mined block.", success)
	}
}

func TestCORS(t *testing.T) {
	n := newNode(t)

	t.Log("Given the need to answer browsers only from allowed origins.")
	{
		type table struct {
			origin string
			exp    string
		}

		tt := []table{
			{origin: viewerOrigin, exp: viewerOrigin},
			{origin: "http://elsewhere.test", exp: ""},
		}

		for testID, tst := range tt {
			r := httptest.NewRequest(http.MethodOptions, "/v1/stats", nil)
			r.Header.Set("Origin", tst.origin)
			w := httptest.NewRecorder()
			n.public.ServeHTTP(w, r)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tst.exp {
				t.Fatalf("\t%s\tTest %d:\tShould allow origin %q, got %q.", failed, testID, tst.exp, got)
			}
			t.Logf("\t%s\tTest %d:\tShould allow origin %q.", success, testID, tst.exp)
		}
	}
}
