// Package postgres provides Postgres-backed persistence for produced results.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insightforge/webintel/internal/fetch"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	PagesTable      string
	SearchesTable   string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Store writes page and search results into Postgres as JSON rows.
type Store struct {
	pool     execCloser
	pages    string
	searches string
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("archive.dsn is required")
	}
	pages, searches, err := tableNames(cfg.PagesTable, cfg.SearchesTable)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, pages: pages, searches: searches}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, pagesTable, searchesTable string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	pages, searches, err := tableNames(pagesTable, searchesTable)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, pages: pages, searches: searches}, nil
}

func tableNames(pages, searches string) (string, string, error) {
	if pages == "" {
		pages = "page_results"
	}
	if searches == "" {
		searches = "search_results"
	}
	for _, table := range []string{pages, searches} {
		if !validTableName.MatchString(table) {
			return "", "", fmt.Errorf("invalid table name %q", table)
		}
	}
	return pages, searches, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SavePage inserts one page result row.
func (s *Store) SavePage(ctx context.Context, page *fetch.PageResult) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("archive store is not configured")
	}
	if page == nil || page.URL == "" {
		return fmt.Errorf("page url is required")
	}
	payload, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	url,
	method,
	fetched_at,
	payload
) VALUES (
	$1,$2,$3,$4,$5
)`, s.pages)

	args := []any{
		uuid.NewString(),
		page.URL,
		string(page.Method),
		page.FetchedAt,
		payload,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert page result: %w", err)
	}
	return nil
}

// SaveSearch inserts one search result row.
func (s *Store) SaveSearch(ctx context.Context, res *fetch.SearchResult) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("archive store is not configured")
	}
	if res == nil || res.Query == "" {
		return fmt.Errorf("search query is required")
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal search result: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	query,
	method,
	fetched_at,
	payload
) VALUES (
	$1,$2,$3,$4,$5
)`, s.searches)

	args := []any{
		uuid.NewString(),
		res.Query,
		string(res.Method),
		res.FetchedAt,
		payload,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert search result: %w", err)
	}
	return nil
}
