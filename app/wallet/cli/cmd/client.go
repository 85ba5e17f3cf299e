package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
)

var client = http.Client{
	Timeout: time.Minute,
}

// loadAddress returns the ledger address of the selected account key.
func loadAddress() (string, error) {
	privateKey, err := crypto.LoadECDSA(privateKeyPath())
	if err != nil {
		return "", err
	}

	return nameservice.Address(privateKey), nil
}

// send performs the request against the node and decodes a successful
// response into resp. A failed request returns the node's error message.
func send(method string, path string, body any, resp any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, nodeURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		var er errs.Response
		if err := json.NewDecoder(res.Body).Decode(&er); err != nil {
			return fmt.Errorf("node returned %s", res.Status)
		}
		return fmt.Errorf("node returned %s: %s", res.Status, er.Error)
	}

	if resp == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}

	return json.NewDecoder(res.Body).Decode(resp)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(data))
	return nil
}
