package depthprofile

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrMalformedRecord    = errors.New("malformed record")
	ErrGridParse          = errors.New("grid parse error")
	ErrBoundingBoxParse   = errors.New("bounding box parse error")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrOutOfDomain        = errors.New("out of domain")
	ErrUnknownLocation    = errors.New("unknown location")
)

// A RecordError is an error affecting a single catalog record. Other records
// remain usable.
type RecordError struct {
	Index    int // Position of the record in its source, -1 if unknown.
	Location string
	Err      error
}

func (e *RecordError) Error() string {
	switch {
	case e.Location != "":
		return "location " + strconv.Quote(e.Location) + ": " + e.Err.Error()
	case e.Index >= 0:
		return "record " + strconv.Itoa(e.Index) + ": " + e.Err.Error()
	default:
		return e.Err.Error()
	}
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func gridParseErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrGridParse, fmt.Sprintf(format, args...))
}

func boundingBoxParseErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBoundingBoxParse, fmt.Sprintf(format, args...))
}

func invalidRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func outOfDomainf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrOutOfDomain, fmt.Sprintf(format, args...))
}
