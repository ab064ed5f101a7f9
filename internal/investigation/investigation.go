// Package investigation manages saved graph-analysis cases: an
// investigator pins a set of seed addresses and the graph-request
// parameters used to explore them, tags addresses as they're
// classified, and reviews the resulting timeline. Adapted from the
// incident-response case manager this service's lineage shipped for
// fund-tracing investigations — the lifecycle and tag/timeline shape
// survive, but a case here pins a saved graph view rather than a theft
// trace.
package investigation

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rawblock/substrate-graph-sleuth/internal/apierr"
)

const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// SavedParams is the graph-request shape an investigation was created
// with, re-runnable to refresh the view.
type SavedParams struct {
	Depth       int     `json:"depth"`
	MaxNodes    int     `json:"maxNodes"`
	MinVolume   string  `json:"minVolume,omitempty"`
	Direction   string  `json:"direction,omitempty"`
	IncludeRisk bool    `json:"includeRisk"`
}

// Tag is investigator-provided metadata attached to one address within
// an investigation.
type Tag struct {
	Address  string    `json:"address"`
	Label    string    `json:"label"`
	Role     string    `json:"role"` // "exchange"/"suspect"/"service"/"unknown"
	Notes    string    `json:"notes,omitempty"`
	TaggedAt time.Time `json:"taggedAt"`
}

// TimelineEvent is one chronological entry in an investigation's
// history — currently only tagging events, since graph exploration
// itself is stateless and re-derived from SavedParams on demand.
type TimelineEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	EventType   string    `json:"eventType"`
	Description string    `json:"description"`
	Address     string    `json:"address,omitempty"`
}

// Investigation is a saved graph-analysis case.
type Investigation struct {
	ID             string      `json:"id"`
	CaseName       string      `json:"caseName"`
	Description    string      `json:"description"`
	SeedAddresses  []string    `json:"seedAddresses"`
	Status         string      `json:"status"`
	SavedParams    SavedParams `json:"savedParams"`
	Tags           []Tag       `json:"tags"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// Manager handles CRUD for investigations, persisted in the relational
// store so cases survive process restart.
type Manager struct {
	db *sql.DB
}

// NewManager builds a Manager backed by db.
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// Create starts a new investigation case.
func (m *Manager) Create(ctx context.Context, caseName, description string, seedAddresses []string, params SavedParams) (*Investigation, error) {
	now := time.Now().UTC()
	inv := &Investigation{
		ID:            uuid.NewString(),
		CaseName:      caseName,
		Description:   description,
		SeedAddresses: seedAddresses,
		Status:        StatusActive,
		SavedParams:   params,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	seedsJSON, err := json.Marshal(seedAddresses)
	if err != nil {
		return nil, err
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO investigations (id, case_name, description, seed_addresses, status, saved_params, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.CaseName, inv.Description, string(seedsJSON), inv.Status, string(paramsJSON),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Get fetches a saved investigation by id, including its tags.
func (m *Manager) Get(ctx context.Context, id string) (*Investigation, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT id, case_name, description, seed_addresses, status, saved_params, created_at, updated_at
		FROM investigations WHERE id = ?`, id)

	var inv Investigation
	var seedsJSON, paramsJSON, createdAt, updatedAt string
	err := row.Scan(&inv.ID, &inv.CaseName, &inv.Description, &seedsJSON, &inv.Status, &paramsJSON, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, apierr.New(apierr.CodeAddressNotFound, "investigation not found: "+id)
	}
	if err != nil {
		return nil, err
	}

	_ = json.Unmarshal([]byte(seedsJSON), &inv.SeedAddresses)
	_ = json.Unmarshal([]byte(paramsJSON), &inv.SavedParams)
	inv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	inv.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	tags, err := m.tagsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Tags = tags
	return &inv, nil
}

// List returns every saved investigation, newest first.
func (m *Manager) List(ctx context.Context) ([]*Investigation, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id FROM investigations ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*Investigation, 0, len(ids))
	for _, id := range ids {
		inv, err := m.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}

// TagAddress labels an address within an investigation, updating an
// existing tag for the same address if present.
func (m *Manager) TagAddress(ctx context.Context, investigationID, address, label, role, notes string) error {
	if _, err := m.Get(ctx, investigationID); err != nil {
		return err
	}

	now := time.Now().UTC()
	var existingID string
	err := m.db.QueryRowContext(ctx, `
		SELECT id FROM investigation_tags WHERE investigation_id = ? AND address = ?`,
		investigationID, address,
	).Scan(&existingID)

	switch err {
	case nil:
		_, err = m.db.ExecContext(ctx, `
			UPDATE investigation_tags SET label = ?, role = ?, notes = ?, tagged_at = ? WHERE id = ?`,
			label, role, notes, now.Format(time.RFC3339), existingID)
	case sql.ErrNoRows:
		_, err = m.db.ExecContext(ctx, `
			INSERT INTO investigation_tags (id, investigation_id, address, label, role, notes, tagged_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), investigationID, address, label, role, notes, now.Format(time.RFC3339))
	default:
		return err
	}
	if err != nil {
		return err
	}

	_, err = m.db.ExecContext(ctx, `UPDATE investigations SET updated_at = ? WHERE id = ?`, now.Format(time.RFC3339), investigationID)
	return err
}

func (m *Manager) tagsFor(ctx context.Context, investigationID string) ([]Tag, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT address, label, role, notes, tagged_at FROM investigation_tags
		WHERE investigation_id = ? ORDER BY tagged_at ASC`, investigationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		var taggedAt string
		if err := rows.Scan(&t.Address, &t.Label, &t.Role, &t.Notes, &taggedAt); err != nil {
			return nil, err
		}
		t.TaggedAt, _ = time.Parse(time.RFC3339, taggedAt)
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// Timeline builds the chronological tag history for an investigation.
func (m *Manager) Timeline(ctx context.Context, investigationID string) ([]TimelineEvent, error) {
	inv, err := m.Get(ctx, investigationID)
	if err != nil {
		return nil, err
	}

	events := make([]TimelineEvent, 0, len(inv.Tags)+1)
	events = append(events, TimelineEvent{
		Timestamp:   inv.CreatedAt,
		EventType:   "created",
		Description: "investigation opened: " + inv.CaseName,
	})
	for _, tag := range inv.Tags {
		events = append(events, TimelineEvent{
			Timestamp:   tag.TaggedAt,
			EventType:   "tagged",
			Description: "address tagged as " + tag.Label,
			Address:     tag.Address,
		})
	}
	return events, nil
}
