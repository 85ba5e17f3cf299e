package handlers

import (
	"bytes"
	"context"
	"html/template"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/web"
)

type index struct {
	page []byte
}

// newIndex renders the index page once with the node the browser should
// stream events from.
func newIndex(build string, nodeHost string) (*index, error) {
	tmpl, err := template.ParseFS(assets, "assets/index.html")
	if err != nil {
		return nil, err
	}

	data := struct {
		Build    string
		NodeHost string
	}{
		Build:    build,
		NodeHost: nodeHost,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}

	return &index{page: buf.Bytes()}, nil
}

func (ig *index) handler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	web.SetStatusCode(ctx, http.StatusOK)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := w.Write(ig.page)
	return err
}
