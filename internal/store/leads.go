package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StoredLead is one persisted, validated lead row.
type StoredLead struct {
	ID        uuid.UUID
	SessionID string
	Side      string
	Product   string
	Persona   string
	Strategy  string
	Payload   map[string]any
	CreatedAt time.Time
}

// WriteLead persists a validated lead. The full payload lands in a jsonb
// column; side and product are denormalized for cheap listing.
func (s *Store) WriteLead(ctx context.Context, sessionID, persona, strategy string, payload map[string]any) (uuid.UUID, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal lead payload: %w", err)
	}

	side, _ := payload["side"].(string)
	product, _ := payload["product"].(string)

	id := uuid.New()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO leads (id, session_id, side, product, persona, strategy, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		id, sessionID, side, product, persona, strategy, payloadJSON,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert lead: %w", err)
	}

	return id, nil
}

// RecentLeads lists the newest leads, most recent first.
func (s *Store) RecentLeads(ctx context.Context, limit int) ([]StoredLead, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, side, product, persona, strategy, payload, created_at
		FROM leads
		ORDER BY created_at DESC
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	var out []StoredLead
	for rows.Next() {
		var l StoredLead
		var payloadJSON []byte
		if err := rows.Scan(&l.ID, &l.SessionID, &l.Side, &l.Product, &l.Persona, &l.Strategy, &payloadJSON, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lead row: %w", err)
		}
		if err := json.Unmarshal(payloadJSON, &l.Payload); err != nil {
			return nil, fmt.Errorf("decode lead payload: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
