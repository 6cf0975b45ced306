package depthprofile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the name of the table holding catalog records.
const DefaultTable = "prg_location_grid"

var errInvalidTable = errors.New("invalid table name")

const (
	selectRecordsQuery = `SELECT "LOCATION", "GRID", "UP_LEFT_ANGLE_LAT_LON", "DOWN_RIGHT_ANGLE_LAT_LON" FROM "%s"`
	createTableQuery   = `CREATE TABLE IF NOT EXISTS "%s" (
	"LOCATION" TEXT NOT NULL,
	"GRID" TEXT NOT NULL,
	"UP_LEFT_ANGLE_LAT_LON" TEXT NOT NULL,
	"DOWN_RIGHT_ANGLE_LAT_LON" TEXT NOT NULL
)`
	deleteRecordQuery = `DELETE FROM "%s" WHERE "LOCATION" = %s`
	insertRecordQuery = `INSERT INTO "%s" ("LOCATION", "GRID", "UP_LEFT_ANGLE_LAT_LON", "DOWN_RIGHT_ANGLE_LAT_LON") VALUES (%s, %s, %s, %s)`
)

// An SQLSource reads catalog records from a database/sql database, typically
// SQLite.
type SQLSource struct {
	db    *sql.DB
	table string
}

// An SQLSourceOption sets an option on an SQLSource or a PGXSource.
type SQLSourceOption func(*string)

// WithTable sets the table name.
func WithTable(table string) SQLSourceOption {
	return func(t *string) {
		*t = table
	}
}

// NewSQLSource returns a new SQLSource reading from db.
func NewSQLSource(db *sql.DB, options ...SQLSourceOption) (*SQLSource, error) {
	table, err := tableName(options)
	if err != nil {
		return nil, err
	}
	return &SQLSource{
		db:    db,
		table: table,
	}, nil
}

// Records implements Source.Records.
func (s *SQLSource) Records(ctx context.Context) ([]RawRecord, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(selectRecordsQuery, s.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RawRecord
	for rows.Next() {
		var location, grid, upLeft, downRight sql.NullString
		if err := rows.Scan(&location, &grid, &upLeft, &downRight); err != nil {
			return nil, err
		}
		records = append(records, RawRecord{
			Location:  location.String,
			Grid:      grid.String,
			UpLeft:    upLeft.String,
			DownRight: downRight.String,
		})
	}
	return records, rows.Err()
}

// CreateTable creates s's table if it does not already exist.
func (s *SQLSource) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(createTableQuery, s.table))
	return err
}

// Put replaces the record for record.Location.
func (s *SQLSource) Put(ctx context.Context, record RawRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(deleteRecordQuery, s.table, "?"), record.Location); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(insertRecordQuery, s.table, "?", "?", "?", "?"),
		record.Location, record.Grid, record.UpLeft, record.DownRight); err != nil {
		return err
	}
	return tx.Commit()
}

// A PGXSource reads catalog records from PostgreSQL.
type PGXSource struct {
	pool  *pgxpool.Pool
	table string
}

// NewPGXSource returns a new PGXSource reading from pool.
func NewPGXSource(pool *pgxpool.Pool, options ...SQLSourceOption) (*PGXSource, error) {
	table, err := tableName(options)
	if err != nil {
		return nil, err
	}
	return &PGXSource{
		pool:  pool,
		table: table,
	}, nil
}

// Records implements Source.Records.
func (s *PGXSource) Records(ctx context.Context) ([]RawRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(selectRecordsQuery, s.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RawRecord
	for rows.Next() {
		var location, grid, upLeft, downRight *string
		if err := rows.Scan(&location, &grid, &upLeft, &downRight); err != nil {
			return nil, err
		}
		records = append(records, RawRecord{
			Location:  deref(location),
			Grid:      deref(grid),
			UpLeft:    deref(upLeft),
			DownRight: deref(downRight),
		})
	}
	return records, rows.Err()
}

// CreateTable creates s's table if it does not already exist.
func (s *PGXSource) CreateTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(createTableQuery, s.table))
	return err
}

// Put replaces the record for record.Location.
func (s *PGXSource) Put(ctx context.Context, record RawRecord) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf(deleteRecordQuery, s.table, "$1"), record.Location); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, fmt.Sprintf(insertRecordQuery, s.table, "$1", "$2", "$3", "$4"),
			record.Location, record.Grid, record.UpLeft, record.DownRight)
		return err
	})
}

// An FSSource reads catalog records from a JSON array in a file.
type FSSource struct {
	fsys     fs.FS
	filename string
}

// NewFSSource returns a new FSSource reading filename from fsys.
func NewFSSource(fsys fs.FS, filename string) *FSSource {
	return &FSSource{
		fsys:     fsys,
		filename: filename,
	}
}

// Records implements Source.Records.
func (s *FSSource) Records(ctx context.Context) ([]RawRecord, error) {
	data, err := fs.ReadFile(s.fsys, s.filename)
	if err != nil {
		return nil, err
	}
	var records []RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%s: %w", s.filename, err)
	}
	return records, nil
}

func tableName(options []SQLSourceOption) (string, error) {
	table := DefaultTable
	for _, option := range options {
		option(&table)
	}
	if table == "" || strings.ContainsFunc(table, func(r rune) bool {
		return !(r == '_' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
	}) {
		return "", fmt.Errorf("%w: %q", errInvalidTable, table)
	}
	return table, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
