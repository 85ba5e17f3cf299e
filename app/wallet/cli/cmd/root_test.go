package cmd

import (
	"path/filepath"
	"testing"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestKeyPath(t *testing.T) {
	t.Log("Given the need to locate an account key by name.")
	{
		for testID, name := range []string{"kennedy", "kennedy.ecdsa"} {
			exp := filepath.Join("zblock", "accounts", "kennedy.ecdsa")
			if got := keyPath("zblock/accounts/", name); got != exp {
				t.Fatalf("\t%s\tTest %d:\tShould resolve %q to %q, got %q.", failed, testID, name, exp, got)
			}
			t.Logf("\t%s\tTest %d:\tShould resolve %q to %q.", success, testID, name, exp)
		}
	}
}

func TestNormalizeNodeURL(t *testing.T) {
	type table struct {
		raw string
		exp string
		ok  bool
	}

	tt := []table{
		{raw: "http://localhost:8080", exp: "http://localhost:8080", ok: true},
		{raw: "https://node.example.com/", exp: "https://node.example.com", ok: true},
		{raw: "localhost:8080", ok: false},
		{raw: "ftp://node.example.com", ok: false},
		{raw: "http://", ok: false},
	}

	t.Log("Given the need to validate the node url.")
	{
		for testID, tst := range tt {
			got, err := normalizeNodeURL(tst.raw)

			if (err == nil) != tst.ok || got != tst.exp {
				t.Fatalf("\t%s\tTest %d:\tShould normalize %q to %q ok[%t], got %q %v.", failed, testID, tst.raw, tst.exp, tst.ok, got, err)
			}
			t.Logf("\t%s\tTest %d:\tShould normalize %q.", success, testID, tst.raw)
		}
	}
}
