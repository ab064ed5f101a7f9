package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("not found")

// UpsertAccount inserts or updates an account row.
func (s *Store) UpsertAccount(ctx context.Context, a models.Account) error {
	tags, err := json.Marshal(a.Tags)
	if err != nil {
		return err
	}

	var display, legal, web, email, twitter, riot, subDisplay sql.NullString
	var isVerified bool
	if a.Identity != nil {
		display = sql.NullString{String: a.Identity.Display, Valid: a.Identity.Display != ""}
		legal = sql.NullString{String: a.Identity.Legal, Valid: a.Identity.Legal != ""}
		web = sql.NullString{String: a.Identity.Web, Valid: a.Identity.Web != ""}
		email = sql.NullString{String: a.Identity.Email, Valid: a.Identity.Email != ""}
		twitter = sql.NullString{String: a.Identity.Twitter, Valid: a.Identity.Twitter != ""}
		riot = sql.NullString{String: a.Identity.Riot, Valid: a.Identity.Riot != ""}
		subDisplay = sql.NullString{String: a.Identity.SubDisplay, Valid: a.Identity.SubDisplay != ""}
		isVerified = a.Identity.IsVerified
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (address, display_name, legal_name, web, email, twitter, riot, is_verified,
			parent_address, sub_display, risk_level, tags, notes, first_seen_block, last_seen_block, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			display_name=excluded.display_name, legal_name=excluded.legal_name, web=excluded.web,
			email=excluded.email, twitter=excluded.twitter, riot=excluded.riot, is_verified=excluded.is_verified,
			parent_address=excluded.parent_address, sub_display=excluded.sub_display, risk_level=excluded.risk_level,
			tags=excluded.tags, notes=excluded.notes, last_seen_block=excluded.last_seen_block, updated_at=excluded.updated_at
	`,
		a.Address, display, legal, web, email, twitter, riot, isVerified,
		nullableParent(a.Identity), subDisplay, a.RiskScore, string(tags), a.Notes,
		a.FirstSeenBlock, a.LastSeenBlock, now, now,
	)
	return err
}

func nullableParent(id *models.Identity) sql.NullString {
	if id == nil || id.ParentAddress == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: id.ParentAddress, Valid: true}
}

// GetAccount fetches a single account by address, returning ErrNotFound
// if no row matches.
func (s *Store) GetAccount(ctx context.Context, address string) (models.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, display_name, legal_name, web, email, twitter, riot, is_verified,
			parent_address, sub_display, risk_level, tags, notes, first_seen_block, last_seen_block, created_at, updated_at
		FROM accounts WHERE address = ?`, address)

	var a models.Account
	var display, legal, web, email, twitter, riot, parent, subDisplay, tagsJSON, notes sql.NullString
	var risk sql.NullInt64
	var isVerified bool
	var createdAt, updatedAt string

	err := row.Scan(&a.Address, &display, &legal, &web, &email, &twitter, &riot, &isVerified,
		&parent, &subDisplay, &risk, &tagsJSON, &notes, &a.FirstSeenBlock, &a.LastSeenBlock, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return models.Account{}, ErrNotFound
	}
	if err != nil {
		return models.Account{}, err
	}

	if display.Valid || legal.Valid || web.Valid || email.Valid || twitter.Valid || riot.Valid {
		a.Identity = &models.Identity{
			Display: display.String, Legal: legal.String, Web: web.String,
			Email: email.String, Twitter: twitter.String, Riot: riot.String,
			IsVerified: isVerified, ParentAddress: parent.String, SubDisplay: subDisplay.String,
		}
	}
	if risk.Valid {
		v := int(risk.Int64)
		a.RiskScore = &v
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		_ = json.Unmarshal([]byte(tagsJSON.String), &a.Tags)
	}
	a.Notes = notes.String
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return a, nil
}
