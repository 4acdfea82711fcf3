package statestore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// checkpointKey mirrors the original "Last Index Update[ <update_url>]"
// Mongo key, reshaped into a NATS KV subject token (spaces and brackets
// aren't legal KV key characters). A bare "checkpoint" key is used when no
// update URL is given, matching the single-target deployments the spec
// describes.
func checkpointKey(updateURL string) string {
	if updateURL == "" {
		return "checkpoint"
	}
	sum := sha1.Sum([]byte(updateURL))
	return "checkpoint." + hex.EncodeToString(sum[:])
}

// GetCheckpoint returns the last successful full-index completion time for
// updateURL, or ok=false if no checkpoint has ever been recorded.
func (s *Store) GetCheckpoint(ctx context.Context, updateURL string) (time.Time, bool, error) {
	data, found, err := s.Get(ctx, checkpointKey(updateURL))
	if err != nil || !found {
		return time.Time{}, false, err
	}
	var t time.Time
	if err := t.UnmarshalText(data); err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// SetCheckpoint records the completion time of a full indexing run. Per
// §4.I, this is only called after a run finishes entirely successfully —
// a run that errors partway through must leave the prior checkpoint
// untouched so the next run re-covers the same window.
func (s *Store) SetCheckpoint(ctx context.Context, updateURL string, t time.Time) error {
	data, err := t.MarshalText()
	if err != nil {
		return err
	}
	return s.Put(ctx, checkpointKey(updateURL), data)
}
