package solrclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ClusterState is the classification Cluster Monitor assigns to a SolrCloud
// probe (spec.md §4.C).
type ClusterState string

const (
	StateOK       ClusterState = "ok"
	StateDegraded ClusterState = "degraded"
	StateError    ClusterState = "error"
)

// normalShardStates are the shard states Cluster Monitor treats as healthy
// (spec.md §4.C): "active" during steady state, "inactive"/"construction"
// during a SolrCloud shard split.
var normalShardStates = map[string]bool{
	"active":       true,
	"inactive":     true,
	"construction": true,
}

// clusterStateDoc mirrors the relevant subset of SolrCloud's
// /clusterstate.json (graph view): a map of collection name to shards, each
// shard carrying a state and a map of replicas, each replica carrying its
// own state.
type clusterStateDoc map[string]struct {
	Shards map[string]struct {
		State    string `json:"state"`
		Replicas map[string]struct {
			State string `json:"state"`
		} `json:"replicas"`
	} `json:"shards"`
}

// Monitor probes SolrCloud's cluster state and caches the classification
// for at least CheckInterval, so the Solr Client's per-request gate doesn't
// hit ZooKeeper on every single update (spec.md §4.C).
type Monitor struct {
	AdminURL      string
	CheckInterval time.Duration
	HTTPClient    *http.Client

	mu         sync.Mutex
	cached     ClusterState
	cachedAt   time.Time
	consecutiveErrors int
}

// State returns the current cluster classification, probing if the cached
// value has expired. If CheckInterval <= 0 or AdminURL is empty, monitoring
// is disabled and State always reports ok (spec.md §4.C).
func (m *Monitor) State(ctx context.Context) ClusterState {
	if m.CheckInterval <= 0 || m.AdminURL == "" {
		return StateOK
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.cachedAt) < m.CheckInterval && m.cached != "" {
		return m.cached
	}

	state, err := m.probe(ctx)
	if err != nil {
		m.consecutiveErrors++
		m.cached = StateError
	} else {
		m.consecutiveErrors = 0
		m.cached = state
	}
	m.cachedAt = time.Now()
	return m.cached
}

// ConsecutiveErrors reports how many probes in a row have failed, so the
// Solr Client can fail fast once this exceeds max_update_tries rather than
// blocking forever on a cluster that stays in `error` (spec.md §4.B).
func (m *Monitor) ConsecutiveErrors() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consecutiveErrors
}

func (m *Monitor) probe(ctx context.Context) (ClusterState, error) {
	client := m.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.AdminURL+"/clusterstate.json", nil)
	if err != nil {
		return StateError, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return StateError, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StateError, fmt.Errorf("solrclient: cluster state probe returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return StateError, err
	}

	var doc clusterStateDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return StateError, err
	}

	return classify(doc), nil
}

func classify(doc clusterStateDoc) ClusterState {
	for _, collection := range doc {
		for _, shard := range collection.Shards {
			if !normalShardStates[shard.State] {
				return StateDegraded
			}
			for _, replica := range shard.Replicas {
				if replica.State != "active" {
					return StateDegraded
				}
			}
		}
	}
	return StateOK
}
