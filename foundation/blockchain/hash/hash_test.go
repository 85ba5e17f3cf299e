package hash_test

import (
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/hash"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type tx struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func TestHashDeterminism(t *testing.T) {
	txs := []tx{
		{From: "", To: "alice", Amount: "100"},
		{From: "alice", To: "bob", Amount: "40"},
	}

	t.Log("Given the need to hash block contents deterministically.")
	{
		t.Logf("\tTest 0:\tWhen hashing the same inputs twice.")
		{
			h1 := hash.Hash(1, 1700000000000, txs, "abc", 42)
			h2 := hash.Hash(1, 1700000000000, txs, "abc", 42)

			if h1 != h2 {
				t.Logf("\t%s\tTest 0:\tgot: %s", failed, h1)
				t.Logf("\t%s\tTest 0:\texp: %s", failed, h2)
				t.Fatalf("\t%s\tTest 0:\tShould get the same digest.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get the same digest.", success)

			if len(h1) != hash.Size {
				t.Fatalf("\t%s\tTest 0:\tShould get a %d character digest, got %d.", failed, hash.Size, len(h1))
			}
			t.Logf("\t%s\tTest 0:\tShould get a %d character digest.", success, hash.Size)
		}

		t.Logf("\tTest 1:\tWhen changing any single input.")
		{
			base := hash.Hash(1, 1700000000000, txs, "abc", 42)

			variants := map[string]string{
				"index":     hash.Hash(2, 1700000000000, txs, "abc", 42),
				"timestamp": hash.Hash(1, 1700000000001, txs, "abc", 42),
				"txs":       hash.Hash(1, 1700000000000, txs[:1], "abc", 42),
				"prevHash":  hash.Hash(1, 1700000000000, txs, "abd", 42),
				"nonce":     hash.Hash(1, 1700000000000, txs, "abc", 43),
			}

			for field, h := range variants {
				if h == base {
					t.Fatalf("\t%s\tTest 1:\tShould get a new digest when %s changes.", failed, field)
				}
				t.Logf("\t%s\tTest 1:\tShould get a new digest when %s changes.", success, field)
			}
		}

		t.Logf("\tTest 2:\tWhen sealing a seed with a nonce.")
		{
			seed, err := hash.NewSeed(7, 1700000000000, txs, "prev")
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to build a seed: %s", failed, err)
			}

			for nonce := uint64(0); nonce < 5; nonce++ {
				if seed.Sum(nonce) != hash.Hash(7, 1700000000000, txs, "prev", nonce) {
					t.Fatalf("\t%s\tTest 2:\tShould match Hash for nonce %d.", failed, nonce)
				}
			}
			t.Logf("\t%s\tTest 2:\tShould match Hash for every nonce.", success)
		}
	}
}

func TestIsSolved(t *testing.T) {
	type table struct {
		name       string
		difficulty uint32
		hash       string
		exp        bool
	}

	tt := []table{
		{"zero", 0, "f" + hash.ZeroHash[1:], true},
		{"one", 1, "0f" + hash.ZeroHash[2:], true},
		{"two-miss", 2, "0f" + hash.ZeroHash[2:], false},
		{"short", 1, "00", false},
		{"too-hard", hash.Size + 1, hash.ZeroHash, false},
	}

	t.Log("Given the need to check a hash against a difficulty.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				got := hash.IsSolved(tst.difficulty, tst.hash)
				if got != tst.exp {
					t.Fatalf("\t%s\tTest %d:\tShould get %v, got %v.", failed, testID, tst.exp, got)
				}
				t.Logf("\t%s\tTest %d:\tShould get %v.", success, testID, tst.exp)
			}

			t.Run(tst.name, f)
		}
	}
}
