package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phdargen/xoninAgent/internal/core/domain"
	"github.com/phdargen/xoninAgent/internal/core/ports"
)

// PostgresStore implements the memory store on Postgres for deployments that
// have a database instead of an artifact file. Selected in cmd when
// DATABASE_URL is set.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	s := &PostgresStore{Pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

var _ ports.Storage = (*PostgresStore)(nil)

func (s *PostgresStore) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS processed_mentions (
			mention_id TEXT PRIMARY KEY,
			address TEXT,
			outcome TEXT NOT NULL,
			tx_hash TEXT,
			reply_id TEXT,
			processed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS minted_addresses (address TEXT PRIMARY KEY, tx_hash TEXT)`,
		`CREATE TABLE IF NOT EXISTS cursors (name TEXT PRIMARY KEY, cursor TEXT)`,
	}
	for _, q := range queries {
		if _, err := s.Pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Seen(mentionID string) bool {
	var outcome string
	err := s.Pool.QueryRow(context.Background(),
		"SELECT outcome FROM processed_mentions WHERE mention_id = $1", mentionID).Scan(&outcome)
	if err != nil {
		return false
	}
	return domain.Outcome(outcome).Terminal()
}

func (s *PostgresStore) MintedAddress(address string) bool {
	var one int
	err := s.Pool.QueryRow(context.Background(),
		"SELECT 1 FROM minted_addresses WHERE address = $1", strings.ToLower(address)).Scan(&one)
	return err == nil
}

func (s *PostgresStore) Record(rec domain.ProcessedRecord) error {
	ctx := context.Background()
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO processed_mentions (mention_id, address, outcome, tx_hash, reply_id, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (mention_id) DO UPDATE SET
		 address = $2, outcome = $3, tx_hash = $4, reply_id = $5, processed_at = $6`,
		rec.MentionID, rec.Address, string(rec.Outcome), rec.TxHash, rec.ReplyID, rec.ProcessedAt)
	if err != nil {
		return err
	}
	if rec.Outcome == domain.OutcomeMinted && rec.Address != "" {
		_, err = s.Pool.Exec(ctx,
			`INSERT INTO minted_addresses (address, tx_hash) VALUES ($1, $2)
			 ON CONFLICT (address) DO NOTHING`,
			strings.ToLower(rec.Address), rec.TxHash)
	}
	return err
}

func (s *PostgresStore) LoadCursor() (string, error) {
	var cursor string
	err := s.Pool.QueryRow(context.Background(),
		"SELECT cursor FROM cursors WHERE name = 'mentions'").Scan(&cursor)
	if err != nil {
		return "", nil
	}
	return cursor, nil
}

func (s *PostgresStore) SaveCursor(sinceID string) error {
	_, err := s.Pool.Exec(context.Background(),
		`INSERT INTO cursors (name, cursor) VALUES ('mentions', $1)
		 ON CONFLICT (name) DO UPDATE SET cursor = $1`, sinceID)
	return err
}

func (s *PostgresStore) Records() []domain.ProcessedRecord {
	rows, err := s.Pool.Query(context.Background(),
		"SELECT mention_id, address, outcome, tx_hash, reply_id, processed_at FROM processed_mentions ORDER BY processed_at")
	if err != nil {
		return nil
	}
	defer rows.Close()

	var recs []domain.ProcessedRecord
	for rows.Next() {
		var r domain.ProcessedRecord
		var outcome string
		if err := rows.Scan(&r.MentionID, &r.Address, &outcome, &r.TxHash, &r.ReplyID, &r.ProcessedAt); err != nil {
			continue
		}
		r.Outcome = domain.Outcome(outcome)
		recs = append(recs, r)
	}
	return recs
}
