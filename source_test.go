package depthprofile_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"

	"github.com/cpbynwol/go-depthprofile"
)

// putter is implemented by sources that can store records.
type putter interface {
	depthprofile.Source
	CreateTable(ctx context.Context) error
	Put(ctx context.Context, record depthprofile.RawRecord) error
}

func testPutter(t *testing.T, source putter) {
	t.Helper()
	ctx := t.Context()

	assert.NoError(t, source.CreateTable(ctx))
	records, err := source.Records(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(records))

	harbour := newTestRecord().Raw()
	harbour.Location = "harbour"
	assert.NoError(t, source.Put(ctx, harbour))
	bay := depthprofile.RawRecord{
		Location:  "bay",
		Grid:      "[[1, 2], [3, 4]]",
		UpLeft:    "44,-2",
		DownRight: "43,-1",
	}
	assert.NoError(t, source.Put(ctx, bay))

	// Putting a record again replaces it.
	harbour.Grid = "[[5, 6], [7, 8]]"
	assert.NoError(t, source.Put(ctx, harbour))

	catalog, err := depthprofile.LoadCatalog(ctx, source)
	assert.NoError(t, err)
	assert.Equal(t, []string{"bay", "harbour"}, catalog.Names())
	assert.Equal(t, 0, len(catalog.Errors()))
	record, err := catalog.Record("harbour")
	assert.NoError(t, err)
	assert.Equal(t, [][]float64{{5, 6}, {7, 8}}, record.Matrix)
}

func TestSQLSource(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	assert.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	source, err := depthprofile.NewSQLSource(db)
	assert.NoError(t, err)
	testPutter(t, source)

	t.Run("missing_table", func(t *testing.T) {
		source, err := depthprofile.NewSQLSource(db, depthprofile.WithTable("missing"))
		assert.NoError(t, err)
		_, err = depthprofile.LoadCatalog(t.Context(), source)
		assert.IsError(t, err, depthprofile.ErrCatalogUnavailable)
	})

	t.Run("null_columns", func(t *testing.T) {
		_, err := db.ExecContext(t.Context(), `CREATE TABLE "nullable" ("LOCATION" TEXT, "GRID" TEXT, "UP_LEFT_ANGLE_LAT_LON" TEXT, "DOWN_RIGHT_ANGLE_LAT_LON" TEXT)`)
		assert.NoError(t, err)
		_, err = db.ExecContext(t.Context(), `INSERT INTO "nullable" VALUES ('reef', NULL, '1,0', '0,1')`)
		assert.NoError(t, err)
		source, err := depthprofile.NewSQLSource(db, depthprofile.WithTable("nullable"))
		assert.NoError(t, err)
		catalog, err := depthprofile.LoadCatalog(t.Context(), source)
		assert.NoError(t, err)
		assert.Equal(t, 0, catalog.Len())
		assert.Equal(t, 1, len(catalog.Errors()))
		assert.IsError(t, catalog.Errors()[0], depthprofile.ErrMalformedRecord)
	})
}

func TestNewSQLSource_InvalidTable(t *testing.T) {
	for _, table := range []string{"", "grid; DROP TABLE x", `a"b`, "a-b"} {
		_, err := depthprofile.NewSQLSource(nil, depthprofile.WithTable(table))
		assert.Error(t, err)
	}
}

func TestPGXSource(t *testing.T) {
	dsn := os.Getenv("DEPTHPROFILE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("DEPTHPROFILE_TEST_PG_DSN not set")
	}
	pool, err := pgxpool.New(t.Context(), dsn)
	assert.NoError(t, err)
	defer pool.Close()

	source, err := depthprofile.NewPGXSource(pool, depthprofile.WithTable("depthprofile_test_grid"))
	assert.NoError(t, err)
	_, err = pool.Exec(t.Context(), `DROP TABLE IF EXISTS "depthprofile_test_grid"`)
	assert.NoError(t, err)
	testPutter(t, source)
}
