// Reader is a client of the http reporter, used by the operator tool and tests.

package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type HttpReader struct {
	baseURL string
	client  *http.Client
}

func NewHttpReader(serverIP string, serverPort string) *HttpReader {
	return NewHttpReaderWithURL("http://"+serverIP+":"+serverPort, http.DefaultClient)
}

func NewHttpReaderWithURL(baseURL string, client *http.Client) *HttpReader {
	return &HttpReader{baseURL: baseURL, client: client}
}

func (hr *HttpReader) GetHealth(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := hr.do(ctx, http.MethodGet, ROUTE_HEALTH, nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// GetUnspent returns the unspent outpoints as "txid:vout" strings.
func (hr *HttpReader) GetUnspent(ctx context.Context) ([]string, error) {
	var resp struct {
		Data []string `json:"data"`
	}
	if err := hr.do(ctx, http.MethodGet, ROUTE_UNSPENT, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (hr *HttpReader) GetScripts(ctx context.Context) ([]string, error) {
	var resp struct {
		Data []string `json:"data"`
	}
	if err := hr.do(ctx, http.MethodGet, ROUTE_SCRIPTS, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (hr *HttpReader) Query(ctx context.Context, filters ...FilterJSON) ([]ResultJSON, error) {
	body, err := json.Marshal(QueryRequest{Filters: filters})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []ResultJSON `json:"data"`
	}
	if err := hr.do(ctx, http.MethodPost, ROUTE_QUERY, body, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (hr *HttpReader) do(ctx context.Context, method, route string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, hr.baseURL+route, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hr.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Read the response body
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &e)
		return fmt.Errorf("%s %s: status %d: %s", method, route, resp.StatusCode, e.Error)
	}
	return json.Unmarshal(data, out)
}
