package depthprofile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	catalogLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthprofile_catalog_loads_total",
		Help: "The total number of catalog loads",
	})
	catalogLoadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthprofile_catalog_load_errors_total",
		Help: "The total number of failed catalog loads",
	})
	malformedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthprofile_malformed_records_total",
		Help: "The total number of malformed catalog records",
	})
)

// A RawRecord is a catalog record as stored, before parsing.
type RawRecord struct {
	Location  string `json:"LOCATION"`
	Grid      string `json:"GRID"`
	UpLeft    string `json:"UP_LEFT_ANGLE_LAT_LON"`
	DownRight string `json:"DOWN_RIGHT_ANGLE_LAT_LON"`
}

// A Source is a persistent store of catalog records.
type Source interface {
	Records(ctx context.Context) ([]RawRecord, error)
}

// A Catalog maps location names to parsed records.
type Catalog struct {
	names   []string
	raw     map[string]RawRecord
	records map[string]*GridRecord
	errs    []*RecordError
}

// LoadCatalog loads all records from source. It returns an error wrapping
// ErrCatalogUnavailable if source fails or if ctx is done first. Malformed
// records do not fail the load; they are reported by the returned catalog's
// Errors method.
func LoadCatalog(ctx context.Context, source Source) (*Catalog, error) {
	catalogLoads.Inc()

	type result struct {
		records []RawRecord
		err     error
	}
	resultCh := make(chan result, 1)
	go func() {
		records, err := source.Records(ctx)
		resultCh <- result{records: records, err: err}
	}()

	select {
	case <-ctx.Done():
		catalogLoadErrors.Inc()
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, ctx.Err())
	case result := <-resultCh:
		if result.err != nil {
			catalogLoadErrors.Inc()
			return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, result.err)
		}
		return NewCatalog(result.records), nil
	}
}

// NewCatalog returns a new Catalog containing records. Records missing a
// required field, records that do not parse, and records repeating an earlier
// usable location are excluded and reported by Errors.
func NewCatalog(records []RawRecord) *Catalog {
	c := &Catalog{
		raw:     make(map[string]RawRecord, len(records)),
		records: make(map[string]*GridRecord, len(records)),
	}
	for index, record := range records {
		var missing []string
		for _, field := range []struct {
			name  string
			value string
		}{
			{"LOCATION", record.Location},
			{"GRID", record.Grid},
			{"UP_LEFT_ANGLE_LAT_LON", record.UpLeft},
			{"DOWN_RIGHT_ANGLE_LAT_LON", record.DownRight},
		} {
			if strings.TrimSpace(field.value) == "" {
				missing = append(missing, field.name)
			}
		}
		switch _, duplicate := c.records[record.Location]; {
		case len(missing) > 0:
			c.addError(index, record.Location, fmt.Errorf("%w: missing %s", ErrMalformedRecord, strings.Join(missing, ", ")))
		case duplicate:
			c.addError(index, record.Location, fmt.Errorf("%w: duplicate location", ErrMalformedRecord))
		default:
			gridRecord, err := record.Parse()
			if err != nil {
				var recordErr *RecordError
				if errors.As(err, &recordErr) {
					err = recordErr.Err
				}
				c.addError(index, record.Location, err)
				continue
			}
			c.names = append(c.names, record.Location)
			c.raw[record.Location] = record
			c.records[record.Location] = gridRecord
		}
	}
	slices.Sort(c.names)
	return c
}

func (c *Catalog) addError(index int, location string, err error) {
	malformedRecords.Inc()
	c.errs = append(c.errs, &RecordError{
		Index:    index,
		Location: location,
		Err:      err,
	})
}

// Names returns the sorted names of the usable locations in c.
func (c *Catalog) Names() []string {
	return slices.Clone(c.names)
}

// Len returns the number of usable locations in c.
func (c *Catalog) Len() int {
	return len(c.names)
}

// Errors returns the errors for records excluded from c.
func (c *Catalog) Errors() []*RecordError {
	return slices.Clone(c.errs)
}

// Raw returns the raw record for name.
func (c *Catalog) Raw(name string) (RawRecord, error) {
	record, ok := c.raw[name]
	if !ok {
		return RawRecord{}, fmt.Errorf("%w: %q", ErrUnknownLocation, name)
	}
	return record, nil
}

// Record returns the parsed and validated record for name. The record is
// shared and must not be modified.
func (c *Catalog) Record(name string) (*GridRecord, error) {
	record, ok := c.records[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLocation, name)
	}
	return record, nil
}

// Parse parses r.
func (r RawRecord) Parse() (*GridRecord, error) {
	matrix, err := ParseGrid(r.Grid)
	if err != nil {
		return nil, &RecordError{Index: -1, Location: r.Location, Err: err}
	}
	topLeft, err := ParseCorner(r.UpLeft)
	if err != nil {
		return nil, &RecordError{Index: -1, Location: r.Location, Err: err}
	}
	bottomRight, err := ParseCorner(r.DownRight)
	if err != nil {
		return nil, &RecordError{Index: -1, Location: r.Location, Err: err}
	}
	record := &GridRecord{
		Name:        r.Location,
		Matrix:      matrix,
		TopLeft:     topLeft,
		BottomRight: bottomRight,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// Raw returns r serialized as a catalog record.
func (r *GridRecord) Raw() RawRecord {
	return RawRecord{
		Location:  r.Name,
		Grid:      FormatGrid(r.Matrix),
		UpLeft:    FormatCorner(r.TopLeft),
		DownRight: FormatCorner(r.BottomRight),
	}
}
