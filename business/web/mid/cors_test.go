package mid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ardanlabs/ledger/business/web/mid"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestCors(t *testing.T) {
	type table struct {
		name    string
		allowed []string
		origin  string
		exp     string
	}

	tt := []table{
		{name: "listed", allowed: []string{"http://a.test", "http://b.test"}, origin: "http://b.test", exp: "http://b.test"},
		{name: "unlisted", allowed: []string{"http://a.test"}, origin: "http://c.test", exp: ""},
		{name: "wildcard", allowed: []string{"*"}, origin: "http://c.test", exp: "*"},
		{name: "no-origin", allowed: []string{"*"}, origin: "", exp: ""},
		{name: "disabled", allowed: nil, origin: "http://a.test", exp: ""},
	}

	t.Log("Given the need to answer cross origin requests from allowed origins.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				var called bool
				h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
					called = true
					return nil
				}

				r := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
				if tst.origin != "" {
					r.Header.Set("Origin", tst.origin)
				}
				w := httptest.NewRecorder()

				if err := mid.Cors(tst.allowed)(h)(context.Background(), w, r); err != nil || !called {
					t.Fatalf("\t%s\tTest %d:\tShould call the next handler: %v", failed, testID, err)
				}

				if got := w.Header().Get("Access-Control-Allow-Origin"); got != tst.exp {
					t.Fatalf("\t%s\tTest %d:\tShould set the allowed origin to %q, got %q.", failed, testID, tst.exp, got)
				}
				t.Logf("\t%s\tTest %d:\tShould set the allowed origin to %q.", success, testID, tst.exp)

				if w.Header().Get("Vary") != "Origin" {
					t.Fatalf("\t%s\tTest %d:\tShould vary the response on the origin.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould vary the response on the origin.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}
