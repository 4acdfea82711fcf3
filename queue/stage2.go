package queue

import (
	"context"
	"time"

	"github.com/aleksip/RecordManager/docstore"
)

// stage2 implements §4.H Stage 2: iterate the dedup-group collection under
// its own filter (a single id, changed-since from, or — with a warning,
// since stale deleted groups can inflate the set — everything) and enqueue
// every id seen. Returns the number of ids appended.
func (m *Manager) stage2(ctx context.Context, hash string, params Params, from time.Time) (int, error) {
	filter := docstore.DedupGroupFilter{}
	switch {
	case params.SingleID != "":
		filter.SingleID = params.SingleID
	case !from.IsZero():
		t := from
		filter.ChangedSince = &t
	default:
		m.warn("queue: running Stage 2 over all dedup groups with no from-date; stale deleted groups may inflate the result")
	}

	cursor, err := m.Store.FindDedupGroups(ctx, filter)
	if err != nil {
		return 0, err
	}
	defer cursor.Close()

	var (
		batch   []string
		written int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := m.State.AppendQueueIDs(ctx, hash, batch); err != nil {
			return err
		}
		written += len(batch)
		batch = batch[:0]
		return nil
	}

	for cursor.Next(ctx) {
		group := cursor.Group()
		batch = append(batch, group.ID)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return written, err
	}
	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}
