// Package store archives fetched row-sets and lottery draws in Postgres.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cadastre/internal/cadastre"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNoRowSets     = errors.New("no archived row-sets")
	ErrDuplicateDraw = errors.New("duplicate draw request")
	ErrPlotAwarded   = errors.New("plot already drawn")
)

const drawPlotConstraint = "lottery_draws_plot_name_key"

const schemaDDL = `
CREATE SCHEMA IF NOT EXISTS cadastre;

CREATE TABLE IF NOT EXISTS cadastre.row_sets (
	id         uuid PRIMARY KEY,
	digest     text NOT NULL UNIQUE,
	fetched_at timestamptz NOT NULL DEFAULT now(),
	payload    jsonb NOT NULL
);

CREATE TABLE IF NOT EXISTS cadastre.lottery_draws (
	id              uuid PRIMARY KEY,
	idempotency_key text NOT NULL UNIQUE,
	plot_name       text NOT NULL,
	donor           text NOT NULL,
	drawn_by        text NOT NULL,
	row_set_id      uuid REFERENCES cadastre.row_sets (id),
	drawn_at        timestamptz NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS lottery_draws_plot_name_key
	ON cadastre.lottery_draws (plot_name);
`

type RowSet struct {
	ID        uuid.UUID
	Digest    string
	FetchedAt time.Time
	Data      cadastre.RawData
}

type Draw struct {
	ID       uuid.UUID `json:"id"`
	PlotName string    `json:"plot_name"`
	Donor    string    `json:"donor"`
	DrawnBy  string    `json:"drawn_by"`
	RowSetID uuid.UUID `json:"row_set_id"`
	DrawnAt  time.Time `json:"drawn_at"`
}

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Digest is a stable content hash of a full load.
func Digest(raw cadastre.RawData) (string, error) {
	body, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

// SaveRowSets archives raw. A load identical to one already stored is not
// duplicated; its fetched_at moves to now so LatestRowSets returns it again.
// The bool reports whether a new row was written.
func (s *Store) SaveRowSets(ctx context.Context, raw cadastre.RawData) (RowSet, bool, error) {
	digest, err := Digest(raw)
	if err != nil {
		return RowSet{}, false, fmt.Errorf("digest row-sets: %w", err)
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return RowSet{}, false, fmt.Errorf("encode row-sets: %w", err)
	}

	out := RowSet{Digest: digest, Data: raw}
	var created bool
	err = s.db.QueryRow(ctx, `
		INSERT INTO cadastre.row_sets (id, digest, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (digest) DO UPDATE SET fetched_at = now()
		RETURNING id, fetched_at, (xmax = 0)
	`, uuid.New(), digest, payload).Scan(&out.ID, &out.FetchedAt, &created)
	if err != nil {
		return RowSet{}, false, fmt.Errorf("upsert row-sets: %w", err)
	}
	return out, created, nil
}

func (s *Store) LatestRowSets(ctx context.Context) (RowSet, error) {
	var (
		out     RowSet
		payload []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, digest, fetched_at, payload
		FROM cadastre.row_sets
		ORDER BY fetched_at DESC
		LIMIT 1
	`).Scan(&out.ID, &out.Digest, &out.FetchedAt, &payload)
	if err == pgx.ErrNoRows {
		return RowSet{}, ErrNoRowSets
	}
	if err != nil {
		return RowSet{}, fmt.Errorf("latest row-sets: %w", err)
	}
	if err := json.Unmarshal(payload, &out.Data); err != nil {
		return RowSet{}, fmt.Errorf("decode row-sets %s: %w", out.ID, err)
	}
	return out, nil
}

// RecordDraw stores a lottery outcome. Replaying the same idempotency key
// returns ErrDuplicateDraw; drawing a plot that was already drawn returns
// ErrPlotAwarded.
func (s *Store) RecordDraw(ctx context.Context, idempotencyKey string, d Draw) (Draw, error) {
	if strings.TrimSpace(idempotencyKey) == "" {
		idempotencyKey = uuid.NewString()
	}
	d.ID = uuid.New()
	var rowSetID *uuid.UUID
	if d.RowSetID != uuid.Nil {
		rowSetID = &d.RowSetID
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO cadastre.lottery_draws (id, idempotency_key, plot_name, donor, drawn_by, row_set_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING drawn_at
	`, d.ID, idempotencyKey, d.PlotName, d.Donor, d.DrawnBy, rowSetID).Scan(&d.DrawnAt)
	if constraint, ok := uniqueViolation(err); ok {
		if constraint == drawPlotConstraint {
			return Draw{}, ErrPlotAwarded
		}
		return Draw{}, ErrDuplicateDraw
	}
	if err != nil {
		return Draw{}, fmt.Errorf("insert draw: %w", err)
	}
	return d, nil
}

func (s *Store) ListDraws(ctx context.Context, limit int) ([]Draw, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, plot_name, donor, drawn_by, COALESCE(row_set_id, '00000000-0000-0000-0000-000000000000'::uuid), drawn_at
		FROM cadastre.lottery_draws
		ORDER BY drawn_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Draw{}
	for rows.Next() {
		var d Draw
		if err := rows.Scan(&d.ID, &d.PlotName, &d.Donor, &d.DrawnBy, &d.RowSetID, &d.DrawnAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DrawnPlots returns the name of every plot that has been drawn.
func (s *Store) DrawnPlots(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT plot_name FROM cadastre.lottery_draws`)
	if err != nil {
		return nil, fmt.Errorf("drawn plots: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("drawn plots: %w", err)
	}
	return names, nil
}

// uniqueViolation reports whether err is a unique violation and which
// constraint it hit.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}
