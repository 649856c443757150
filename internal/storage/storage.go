package storage

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

// uniqueViolation is the PostgreSQL SQLSTATE of a unique constraint violation.
const uniqueViolation = "23505"

// Storage is the PostgreSQL backed store of users, posts, comments and reactions.
type Storage struct {
	ctx    context.Context
	logger *zap.SugaredLogger
	pool   *pgxpool.Pool
}

func NewStorage(ctx context.Context, l *zap.SugaredLogger) *Storage {
	return &Storage{ctx: ctx, logger: l}
}

func (s *Storage) Connect(dsn string) error {
	var err error
	s.pool, err = pgxpool.Connect(s.ctx, dsn)
	return err
}

// Migrate creates missing tables and indexes. It is safe to run on every start.
func (s *Storage) Migrate() error {
	s.logger.Debug("Applying database schema.")
	if _, err := s.pool.Exec(s.ctx, schema); err != nil {
		return fmt.Errorf("couldn't apply schema: %w", err)
	}
	return nil
}

func (s *Storage) Begin(ctx context.Context, fn func(pgx.Tx) error) error {
	return s.pool.BeginFunc(ctx, fn)
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}
