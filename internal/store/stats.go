package store

import (
	"context"
	"database/sql"
	"math/big"
	"sort"

	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

// sortByTotalAmountDesc orders stats by total_amount descending using
// big.Int comparison: SQLite's CAST(... AS INTEGER) silently truncates
// amounts past 64 bits (spec.md §3 requires wider support), so sorting
// must happen in Go over the full decimal string.
func sortByTotalAmountDesc(stats []models.TransferStats) {
	sort.SliceStable(stats, func(i, j int) bool {
		a, ok := new(big.Int).SetString(stats[i].TotalAmount, 10)
		if !ok {
			a = big.NewInt(0)
		}
		b, ok := new(big.Int).SetString(stats[j].TotalAmount, 10)
		if !ok {
			b = big.NewInt(0)
		}
		return a.Cmp(b) > 0
	})
}

// UpsertTransferStats recomputes the aggregate row for one (from, to)
// pair after a new transfer of amount has been recorded.
func (s *Store) UpsertTransferStats(ctx context.Context, from, to, amount string, block int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existingTotal, existingAvg sql.NullString
	var count, firstBlock, lastBlock sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT total_amount, transfer_count, first_transfer_block, last_transfer_block
		FROM transfer_stats WHERE from_address = ? AND to_address = ?`, from, to,
	).Scan(&existingTotal, &count, &firstBlock, &lastBlock)

	newTotal := new(big.Int)
	if err == nil {
		if v, ok := new(big.Int).SetString(existingTotal.String, 10); ok {
			newTotal = v
		}
	} else if err != sql.ErrNoRows {
		return err
	}
	amt, _ := new(big.Int).SetString(amount, 10)
	if amt == nil {
		amt = big.NewInt(0)
	}
	newTotal.Add(newTotal, amt)
	newCount := count.Int64 + 1
	first := block
	if firstBlock.Valid && firstBlock.Int64 < block {
		first = firstBlock.Int64
	}
	last := block
	if lastBlock.Valid && lastBlock.Int64 > block {
		last = lastBlock.Int64
	}
	avg := new(big.Int).Div(newTotal, big.NewInt(newCount))
	_ = existingAvg

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transfer_stats (from_address, to_address, total_amount, transfer_count, first_transfer_block, last_transfer_block, avg_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(from_address, to_address) DO UPDATE SET
			total_amount=excluded.total_amount, transfer_count=excluded.transfer_count,
			first_transfer_block=excluded.first_transfer_block, last_transfer_block=excluded.last_transfer_block,
			avg_amount=excluded.avg_amount`,
		from, to, newTotal.String(), newCount, first, last, avg.String(),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// TopCounterparties returns transfer_stats rows involving address,
// ordered by total_amount descending and capped at limit — the backing
// query for direct (depth=1) graph traversal (spec.md §4.9).
func (s *Store) TopCounterparties(ctx context.Context, address string, minVolume *big.Int, limit int) ([]models.TransferStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_address, to_address, total_amount, transfer_count, first_transfer_block, last_transfer_block, avg_amount
		FROM transfer_stats
		WHERE from_address = ? OR to_address = ?`, address, address,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TransferStats
	for rows.Next() {
		var ts models.TransferStats
		if err := rows.Scan(&ts.FromAddress, &ts.ToAddress, &ts.TotalAmount, &ts.TransferCount, &ts.FirstBlock, &ts.LastBlock, &ts.AvgAmount); err != nil {
			return nil, err
		}
		if minVolume != nil {
			total, ok := new(big.Int).SetString(ts.TotalAmount, 10)
			if !ok || total.Cmp(minVolume) < 0 {
				continue
			}
		}
		out = append(out, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortByTotalAmountDesc(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// OutgoingStats returns transfer_stats rows with from_address =
// address and total_amount ≥ minVolume, ordered descending — the
// directed-edge source for circular-flow detection (spec.md §4.9).
func (s *Store) OutgoingStats(ctx context.Context, address string, minVolume *big.Int) ([]models.TransferStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_address, to_address, total_amount, transfer_count, first_transfer_block, last_transfer_block, avg_amount
		FROM transfer_stats WHERE from_address = ?`, address,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TransferStats
	for rows.Next() {
		var ts models.TransferStats
		if err := rows.Scan(&ts.FromAddress, &ts.ToAddress, &ts.TotalAmount, &ts.TransferCount, &ts.FirstBlock, &ts.LastBlock, &ts.AvgAmount); err != nil {
			return nil, err
		}
		if minVolume != nil {
			total, ok := new(big.Int).SetString(ts.TotalAmount, 10)
			if !ok || total.Cmp(minVolume) < 0 {
				continue
			}
		}
		out = append(out, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortByTotalAmountDesc(out)
	return out, nil
}

// UpsertAccountStats folds one transfer into both endpoints'
// account_stats rows: sender's total_sent/send_count, receiver's
// total_received/receive_count, and each side's unique-counterparty
// and activity-block range (spec.md §5).
func (s *Store) UpsertAccountStats(ctx context.Context, t models.Transfer) error {
	if err := s.bumpAccountStats(ctx, t.FromAddress, t.Amount, "sent", t.BlockNumber); err != nil {
		return err
	}
	return s.bumpAccountStats(ctx, t.ToAddress, t.Amount, "received", t.BlockNumber)
}

func (s *Store) bumpAccountStats(ctx context.Context, address, amount, direction string, block int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var totalReceived, totalSent sql.NullString
	var receiveCount, sendCount, firstBlock, lastBlock sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT total_received, total_sent, receive_count, send_count, first_activity_block, last_activity_block
		FROM account_stats WHERE address = ?`, address,
	).Scan(&totalReceived, &totalSent, &receiveCount, &sendCount, &firstBlock, &lastBlock)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	recv := bigOrZero(totalReceived.String)
	sent := bigOrZero(totalSent.String)
	amt := bigOrZero(amount)

	receiveN, sendN := receiveCount.Int64, sendCount.Int64
	if direction == "sent" {
		sent.Add(sent, amt)
		sendN++
	} else {
		recv.Add(recv, amt)
		receiveN++
	}

	first := block
	if firstBlock.Valid && firstBlock.Int64 != 0 && firstBlock.Int64 < block {
		first = firstBlock.Int64
	}
	last := block
	if lastBlock.Valid && lastBlock.Int64 > block {
		last = lastBlock.Int64
	}

	uniqueSenders, uniqueReceivers, err := s.uniqueCounterparties(ctx, tx, address)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO account_stats (address, total_received, total_sent, receive_count, send_count,
			unique_senders, unique_receivers, first_activity_block, last_activity_block)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			total_received=excluded.total_received, total_sent=excluded.total_sent,
			receive_count=excluded.receive_count, send_count=excluded.send_count,
			unique_senders=excluded.unique_senders, unique_receivers=excluded.unique_receivers,
			first_activity_block=excluded.first_activity_block, last_activity_block=excluded.last_activity_block`,
		address, recv.String(), sent.String(), receiveN, sendN, uniqueSenders, uniqueReceivers, first, last,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// uniqueCounterparties counts the distinct senders-to and
// receivers-from address in transfer_stats, re-derived on every bump
// rather than tracked incrementally so it self-corrects if a row is
// ever edited out of band.
func (s *Store) uniqueCounterparties(ctx context.Context, tx *sql.Tx, address string) (senders, receivers int, err error) {
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(DISTINCT from_address) FROM transfer_stats WHERE to_address = ?`, address).Scan(&senders); err != nil {
		return 0, 0, err
	}
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(DISTINCT to_address) FROM transfer_stats WHERE from_address = ?`, address).Scan(&receivers); err != nil {
		return 0, 0, err
	}
	return senders, receivers, nil
}

func bigOrZero(s string) *big.Int {
	if v, ok := new(big.Int).SetString(s, 10); ok {
		return v
	}
	return big.NewInt(0)
}

// GetAccountStats fetches the derived per-address aggregate, returning
// a zero-value row (not an error) when none exists yet — callers fall
// back gracefully per spec.md §4.9.
func (s *Store) GetAccountStats(ctx context.Context, address string) (models.AccountStats, error) {
	var st models.AccountStats
	st.Address = address
	row := s.db.QueryRowContext(ctx, `
		SELECT total_received, total_sent, receive_count, send_count, unique_senders, unique_receivers,
			first_activity_block, last_activity_block, suspicious_pattern_count, high_risk_interaction_count
		FROM account_stats WHERE address = ?`, address)
	err := row.Scan(&st.TotalReceived, &st.TotalSent, &st.ReceiveCount, &st.SendCount, &st.UniqueSenders, &st.UniqueReceivers,
		&st.FirstActivityBlock, &st.LastActivityBlock, &st.SuspiciousPatternCount, &st.HighRiskInteractionCount)
	if err == sql.ErrNoRows {
		return st, nil
	}
	return st, err
}
