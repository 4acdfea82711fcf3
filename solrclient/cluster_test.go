package solrclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonitorState_AlwaysOKWhenDisabled(t *testing.T) {
	m := &Monitor{}
	assert.Equal(t, StateOK, m.State(context.Background()))
}

func TestMonitorState_ClassifiesHealthyClusterAsOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"mycollection": {"shards": {"shard1": {"state": "active", "replicas": {
				"core_node1": {"state": "active"}
			}}}}
		}`))
	}))
	defer srv.Close()

	m := &Monitor{AdminURL: srv.URL, CheckInterval: time.Minute}
	assert.Equal(t, StateOK, m.State(context.Background()))
}

func TestMonitorState_ClassifiesInactiveReplicaAsDegraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"mycollection": {"shards": {"shard1": {"state": "active", "replicas": {
				"core_node1": {"state": "down"}
			}}}}
		}`))
	}))
	defer srv.Close()

	m := &Monitor{AdminURL: srv.URL, CheckInterval: time.Minute}
	assert.Equal(t, StateDegraded, m.State(context.Background()))
}

func TestMonitorState_ClassifiesFailedProbeAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := &Monitor{AdminURL: srv.URL, CheckInterval: time.Minute}
	assert.Equal(t, StateError, m.State(context.Background()))
	assert.Equal(t, 1, m.ConsecutiveErrors())
}

func TestMonitorState_CachesWithinInterval(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := &Monitor{AdminURL: srv.URL, CheckInterval: time.Hour}
	m.State(context.Background())
	m.State(context.Background())
	assert.Equal(t, 1, calls)
}
