package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"

	"github.com/cpbynwol/go-depthprofile"
)

// A recordStore is a catalog source that can also store records.
type recordStore interface {
	depthprofile.Source
	CreateTable(ctx context.Context) error
	Put(ctx context.Context, record depthprofile.RawRecord) error
}

// A catalogConn is an open catalog.
type catalogConn struct {
	source depthprofile.Source
	store  recordStore
	close  func()
}

// openCatalog opens the catalog configured in cfg.
func openCatalog(ctx context.Context, cfg *Config) (*catalogConn, error) {
	table := depthprofile.WithTable(cfg.Catalog.Table)
	switch cfg.Catalog.Driver {
	case "sqlite":
		db, err := sql.Open("sqlite", cfg.Catalog.DSN)
		if err != nil {
			return nil, err
		}
		source, err := depthprofile.NewSQLSource(db, table)
		if err != nil {
			db.Close()
			return nil, err
		}
		return &catalogConn{
			source: source,
			store:  source,
			close:  func() { db.Close() },
		}, nil
	case "pgx":
		pool, err := pgxpool.New(ctx, cfg.Catalog.DSN)
		if err != nil {
			return nil, err
		}
		source, err := depthprofile.NewPGXSource(pool, table)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return &catalogConn{
			source: source,
			store:  source,
			close:  pool.Close,
		}, nil
	case "json":
		dir, filename := filepath.Split(cfg.Catalog.DSN)
		if dir == "" {
			dir = "."
		}
		return &catalogConn{
			source: depthprofile.NewFSSource(os.DirFS(dir), filename),
			close:  func() {},
		}, nil
	default:
		return nil, fmt.Errorf("%s: unsupported catalog driver", cfg.Catalog.Driver)
	}
}

// logRecordErrors logs a warning for each record excluded from a catalog.
func logRecordErrors(recordErrs []*depthprofile.RecordError) {
	for _, recordErr := range recordErrs {
		slog.Warn("malformed record",
			slog.Int("index", recordErr.Index),
			slog.String("location", recordErr.Location),
			slog.Any("error", recordErr.Err),
		)
	}
}
