package store

import (
	"context"
	"database/sql"
	"math"
	"math/big"
	"time"

	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

func unixTime(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

// InsertTransfer appends one transfer row, ignoring it if a row with
// the same (transaction_hash, event_index) already exists — inserted
// reports whether a new row was actually written. Callers performing a
// bulk load should wrap many calls in BeginBulkImport/EndBulkImport.
func (s *Store) InsertTransfer(ctx context.Context, t models.Transfer) (inserted bool, err error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO transfers (block_number, block_timestamp, from_address, to_address, amount, transaction_hash, event_index)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.BlockNumber, t.BlockTime.Unix(), t.FromAddress, t.ToAddress, t.Amount, t.TxHash, t.EventIndex,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IngestTransfer records t and folds it into transfer_stats and
// account_stats, in that order. If t duplicates an already-recorded
// (transaction_hash, event_index), the insert is ignored and neither
// aggregate table is touched — the no-op-on-duplicate invariant spec.md
// §8 requires. inserted reports whether t was new.
func (s *Store) IngestTransfer(ctx context.Context, t models.Transfer) (inserted bool, err error) {
	inserted, err = s.InsertTransfer(ctx, t)
	if err != nil || !inserted {
		return inserted, err
	}
	if err := s.UpsertTransferStats(ctx, t.FromAddress, t.ToAddress, t.Amount, t.BlockNumber); err != nil {
		return true, err
	}
	if err := s.UpsertAccountStats(ctx, t); err != nil {
		return true, err
	}
	return true, nil
}

// TransfersForAddress returns a page of transfers touching address,
// newest first, optionally filtered by direction ("sent", "received",
// or "" for both).
func (s *Store) TransfersForAddress(ctx context.Context, address, direction string, limit, offset int) ([]models.Transfer, error) {
	var query string
	var args []interface{}

	switch direction {
	case "sent":
		query = `SELECT id, block_number, block_timestamp, from_address, to_address, amount, transaction_hash, event_index
			FROM transfers WHERE from_address = ? ORDER BY block_number DESC LIMIT ? OFFSET ?`
		args = []interface{}{address, limit, offset}
	case "received":
		query = `SELECT id, block_number, block_timestamp, from_address, to_address, amount, transaction_hash, event_index
			FROM transfers WHERE to_address = ? ORDER BY block_number DESC LIMIT ? OFFSET ?`
		args = []interface{}{address, limit, offset}
	default:
		query = `SELECT id, block_number, block_timestamp, from_address, to_address, amount, transaction_hash, event_index
			FROM transfers WHERE from_address = ? OR to_address = ? ORDER BY block_number DESC LIMIT ? OFFSET ?`
		args = []interface{}{address, address, limit, offset}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// TransferWindowStats re-derives volume/count/block-range for one
// address pair (either direction) from the raw transfers table,
// restricted to [start, end]. It backs the graph assembler's
// startTime/endTime narrowing (spec.md §6), which the pre-aggregated
// transfer_stats table cannot answer since it carries no timestamps.
func (s *Store) TransferWindowStats(ctx context.Context, a, b string, start, end *time.Time) (*big.Int, int64, int64, int64, error) {
	startUnix := int64(0)
	if start != nil {
		startUnix = start.Unix()
	}
	endUnix := int64(math.MaxInt64)
	if end != nil {
		endUnix = end.Unix()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT amount, block_number FROM transfers
		WHERE ((from_address = ? AND to_address = ?) OR (from_address = ? AND to_address = ?))
		AND block_timestamp >= ? AND block_timestamp <= ?`,
		a, b, b, a, startUnix, endUnix,
	)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	defer rows.Close()

	volume := big.NewInt(0)
	var count, first, last int64
	for rows.Next() {
		var amount string
		var block int64
		if err := rows.Scan(&amount, &block); err != nil {
			return nil, 0, 0, 0, err
		}
		if v, ok := new(big.Int).SetString(amount, 10); ok {
			volume.Add(volume, v)
		}
		count++
		if first == 0 || block < first {
			first = block
		}
		if block > last {
			last = block
		}
	}
	return volume, count, first, last, rows.Err()
}

// BlockTimestamp resolves the wall-clock time of any transfer recorded
// at block, or the zero time if none is on file.
func (s *Store) BlockTimestamp(ctx context.Context, block int64) (time.Time, error) {
	var ts int64
	err := s.db.QueryRowContext(ctx, `SELECT block_timestamp FROM transfers WHERE block_number = ? LIMIT 1`, block).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return unixTime(ts), nil
}

func scanTransfers(rows *sql.Rows) ([]models.Transfer, error) {
	var out []models.Transfer
	for rows.Next() {
		var t models.Transfer
		var blockTS int64
		if err := rows.Scan(&t.ID, &t.BlockNumber, &blockTS, &t.FromAddress, &t.ToAddress, &t.Amount, &t.TxHash, &t.EventIndex); err != nil {
			return nil, err
		}
		t.BlockTime = unixTime(blockTS)
		out = append(out, t)
	}
	return out, rows.Err()
}
