// Package solrclient implements the Solr Client (spec.md §4.B) and Cluster
// Monitor (spec.md §4.C): a single gated, retrying HTTP request operation
// against a Solr/SolrCloud update endpoint, plus the cluster-health probe
// that gates it.
package solrclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	stderrors "github.com/aleksip/RecordManager/errors"
	"github.com/aleksip/RecordManager/pkg/retry"
)

// Client posts update requests to a Solr update_url, gated by a Cluster
// Monitor and retried on transport errors or non-2xx responses.
type Client struct {
	UpdateURL string
	SearchURL string
	Username  string
	Password  string

	MaxTries   int
	RetryWait  time.Duration
	HTTPClient *http.Client

	Monitor *Monitor
}

// ErrClusterDown is returned when the cluster has stayed in the `error`
// state for more than MaxTries consecutive probes (spec.md §4.B: "fails
// fast if the cluster stays error beyond max_update_tries").
var ErrClusterDown = fmt.Errorf("solrclient: cluster state has not recovered")

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Request implements the single Solr Client operation (spec.md §4.B):
// POST body to update_url, blocking on the Cluster Monitor before sending
// and before each retry, retrying up to MaxTries on transport errors or
// HTTP >= 300, sleeping RetryWait between attempts (fixed interval, per
// spec.md: "sleep of update_retry_wait seconds and retry" — no backoff
// growth, so Multiplier is 1.0).
func (c *Client) Request(ctx context.Context, body []byte, timeout time.Duration) ([]byte, error) {
	maxTries := c.MaxTries
	if maxTries <= 0 {
		maxTries = 1
	}

	cfg := retry.Config{
		MaxAttempts:  maxTries,
		InitialDelay: c.RetryWait,
		MaxDelay:     c.RetryWait,
		Multiplier:   1.0,
		AddJitter:    false,
	}

	var result []byte
	err := retry.Do(ctx, cfg, func() error {
		if err := c.awaitCluster(ctx); err != nil {
			return retry.NonRetryable(err)
		}
		resp, err := c.post(ctx, c.UpdateURL, body, timeout)
		if err != nil {
			return err
		}
		result = resp
		return nil
	})
	if err != nil {
		return nil, stderrors.WrapTransient(err, "solrclient", "Request",
			fmt.Sprintf("exhausted %d attempts against %s", maxTries, c.UpdateURL))
	}
	return result, nil
}

// awaitCluster blocks while the cluster is degraded, and fails fast once it
// has stayed in error for more than MaxTries consecutive probes.
func (c *Client) awaitCluster(ctx context.Context) error {
	if c.Monitor == nil {
		return nil
	}
	for {
		state := c.Monitor.State(ctx)
		switch state {
		case StateOK:
			return nil
		case StateError:
			if c.Monitor.ConsecutiveErrors() > c.MaxTries {
				return stderrors.WrapTransient(ErrClusterDown, "solrclient", "awaitCluster", c.UpdateURL)
			}
		}
		if err := sleep(ctx, c.Monitor.CheckInterval); err != nil {
			return err
		}
	}
}

func (c *Client) post(ctx context.Context, url string, body []byte, timeout time.Duration) ([]byte, error) {
	reqCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("solrclient: %s returned %d: %s", url, resp.StatusCode, respBody)
	}
	return respBody, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// deleteByID is the wire shape of one Solr delete-by-id command (spec.md
// §6: "body either `[doc, doc, …]` or `{"delete":{"id":"…"}, …}`").
type deleteByID struct {
	Delete struct {
		ID string `json:"id"`
	} `json:"delete"`
}

func newDeleteByID(id string) deleteByID {
	var d deleteByID
	d.Delete.ID = id
	return d
}

// Update sends a batch of documents as a bare JSON array (§4.A flush →
// §4.B request, spec.md §6).
func (c *Client) Update(ctx context.Context, docs []map[string][]string, timeout time.Duration) error {
	if len(docs) == 0 {
		return nil
	}
	body, err := json.Marshal(docs)
	if err != nil {
		return stderrors.WrapInvalid(err, "solrclient", "Update", "marshal document batch")
	}
	_, err = c.Request(ctx, body, timeout)
	return err
}

// Delete sends a batch of document ids, one {"delete":{"id":...}} entry per
// id, as a JSON array (spec.md §6/S4: per-id delete objects, not one batched
// id array under a shared "delete" key).
func (c *Client) Delete(ctx context.Context, ids []string, timeout time.Duration) error {
	if len(ids) == 0 {
		return nil
	}
	batch := make([]deleteByID, 0, len(ids))
	for _, id := range ids {
		batch = append(batch, newDeleteByID(id))
	}
	body, err := json.Marshal(batch)
	if err != nil {
		return stderrors.WrapInvalid(err, "solrclient", "Delete", "marshal delete batch")
	}
	_, err = c.Request(ctx, body, timeout)
	return err
}

// DeleteByQuery issues a delete-by-query command (spec.md §4.I delete-source
// mode: `{"delete":{"query":"id:<source>.*"}}`).
func (c *Client) DeleteByQuery(ctx context.Context, query string, timeout time.Duration) error {
	body, err := json.Marshal(map[string]any{
		"delete": map[string]string{"query": query},
	})
	if err != nil {
		return err
	}
	_, err = c.Request(ctx, body, timeout)
	return err
}

// Commit issues a plain commit ({"commit":{}}); it has no soft-commit option.
func (c *Client) Commit(ctx context.Context, timeout time.Duration) error {
	_, err := c.Request(ctx, []byte(`{"commit":{}}`), timeout)
	return err
}

// Search issues a GET against search_url for compare mode (spec.md §4.I
// compare mode: "fetch the existing indexed document by id via
// search_url").
func (c *Client) Search(ctx context.Context, query string, timeout time.Duration) ([]byte, error) {
	reqCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.SearchURL+"?"+query, nil)
	if err != nil {
		return nil, err
	}
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, stderrors.WrapTransient(err, "solrclient", "Search", c.SearchURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("solrclient: search %s returned %d: %s", c.SearchURL, resp.StatusCode, body)
	}
	return body, nil
}
