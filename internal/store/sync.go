package store

import (
	"context"
	"time"
)

// SyncState mirrors the single-row sync_state table.
type SyncState struct {
	LastProcessedBlock int64
	LastSyncTimestamp  time.Time
	IsSyncing          bool
}

// GetSyncState reads the singleton sync_state row.
func (s *Store) GetSyncState(ctx context.Context) (SyncState, error) {
	var st SyncState
	var ts *string
	var syncing int
	err := s.db.QueryRowContext(ctx, `
		SELECT last_processed_block, last_sync_timestamp, is_syncing FROM sync_state WHERE id = 1`,
	).Scan(&st.LastProcessedBlock, &ts, &syncing)
	if err != nil {
		return st, err
	}
	st.IsSyncing = syncing != 0
	if ts != nil {
		st.LastSyncTimestamp, _ = time.Parse(time.RFC3339, *ts)
	}
	return st, nil
}

// SetSyncState updates the singleton sync_state row.
func (s *Store) SetSyncState(ctx context.Context, lastBlock int64, syncing bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_state SET last_processed_block = ?, last_sync_timestamp = ?, is_syncing = ? WHERE id = 1`,
		lastBlock, time.Now().UTC().Format(time.RFC3339), boolToInt(syncing),
	)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
