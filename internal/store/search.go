package store

import (
	"context"

	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

// SearchAccounts finds accounts whose address or identity display name
// contains query, capped at limit. This only searches addresses the
// local store already knows about (accounts seen via a prior graph
// assembly or transfer ingest) — it never reaches upstream.
func (s *Store) SearchAccounts(ctx context.Context, query string, limit int) ([]models.Account, error) {
	like := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT address FROM accounts
		WHERE address LIKE ? OR display_name LIKE ?
		ORDER BY last_seen_block DESC
		LIMIT ?`, like, like, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addresses []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	accounts := make([]models.Account, 0, len(addresses))
	for _, addr := range addresses {
		acct, err := s.GetAccount(ctx, addr)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}
