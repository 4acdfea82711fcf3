package queue

import (
	"context"

	"github.com/aleksip/RecordManager/docstore"
)

// stage1 implements §4.H Stage 1: iterate records matching params
// (projected to dedup id only, in dedup-id order via RequireDedup), and on
// each change of dedup id enqueue the id that just ended. Records without a
// dedup id are excluded at query time by RequireDedup. Returns the number
// of ids appended.
func (m *Manager) stage1(ctx context.Context, hash string, params Params) (int, error) {
	cursor, err := m.Store.FindRecords(ctx, docstore.RecordFilter{
		SourceID:     params.SourceID,
		SingleID:     params.SingleID,
		RequireDedup: true,
	})
	if err != nil {
		return 0, err
	}
	defer cursor.Close()

	var (
		batch   []string
		written int
		last    string
		started bool
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
		rec := cursor.Record()
		if started && rec.DedupID != last {
			batch = append(batch, last)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return written, err
				}
			}
		}
		last = rec.DedupID
		started = true
	}
	if err := cursor.Err(); err != nil {
		return written, err
	}
	if started {
		batch = append(batch, last)
	}
	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}
