package depthprofile

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseGrid parses a grid serialized as a bracketed list of bracketed,
// comma-separated rows, for example "[[1.0, 2.0], [3.0, 4.0]]". All rows must
// have the same, non-zero, length.
func ParseGrid(s string) ([][]float64, error) {
	sc := &gridScanner{s: s}
	if err := sc.expect('['); err != nil {
		return nil, err
	}
	var matrix [][]float64
	for {
		row, err := sc.row()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(matrix), err)
		}
		if len(matrix) > 0 && len(row) != len(matrix[0]) {
			return nil, gridParseErrorf("row %d has %d values, expected %d", len(matrix), len(row), len(matrix[0]))
		}
		matrix = append(matrix, row)
		switch c, err := sc.next(); {
		case err != nil:
			return nil, err
		case c == ',':
			continue
		case c == ']':
			if sc.skipSpace(); sc.pos != len(sc.s) {
				return nil, gridParseErrorf("unexpected %q at offset %d", sc.s[sc.pos:], sc.pos)
			}
			return matrix, nil
		default:
			return nil, gridParseErrorf("unexpected %q at offset %d", c, sc.pos-1)
		}
	}
}

// FormatGrid serializes matrix in the format accepted by ParseGrid.
func FormatGrid(matrix [][]float64) string {
	var sb strings.Builder
	sb.WriteString("[[")
	for i, row := range matrix {
		if i > 0 {
			sb.WriteString("], [")
		}
		for j, value := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.FormatFloat(value, 'g', -1, 64))
		}
	}
	sb.WriteString("]]")
	return sb.String()
}

// ParseCorner parses a corner stored as "lat,lon".
func ParseCorner(s string) (LatLon, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 2 {
		return LatLon{}, boundingBoxParseErrorf("%q: found %d fields, expected 2", s, len(fields))
	}
	var values [2]float64
	for i, field := range fields {
		value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil || !isFinite(value) {
			return LatLon{}, boundingBoxParseErrorf("%q: invalid number %q", s, field)
		}
		values[i] = value
	}
	return LatLon{Lat: values[0], Lon: values[1]}, nil
}

// FormatCorner serializes c in the format accepted by ParseCorner.
func FormatCorner(c LatLon) string {
	return strconv.FormatFloat(c.Lat, 'g', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'g', -1, 64)
}

// A gridScanner tokenizes serialized grids.
type gridScanner struct {
	s   string
	pos int
}

func (sc *gridScanner) skipSpace() {
	for sc.pos < len(sc.s) && isSpace(sc.s[sc.pos]) {
		sc.pos++
	}
}

// next returns the next non-space byte.
func (sc *gridScanner) next() (byte, error) {
	sc.skipSpace()
	if sc.pos >= len(sc.s) {
		return 0, gridParseErrorf("unexpected end of input")
	}
	c := sc.s[sc.pos]
	sc.pos++
	return c, nil
}

func (sc *gridScanner) expect(want byte) error {
	switch c, err := sc.next(); {
	case err != nil:
		return err
	case c != want:
		return gridParseErrorf("expected %q at offset %d, found %q", want, sc.pos-1, c)
	default:
		return nil
	}
}

// row scans a bracketed row of numbers.
func (sc *gridScanner) row() ([]float64, error) {
	if err := sc.expect('['); err != nil {
		return nil, err
	}
	var row []float64
	for {
		value, err := sc.number()
		if err != nil {
			return nil, err
		}
		row = append(row, value)
		switch c, err := sc.next(); {
		case err != nil:
			return nil, err
		case c == ',':
			continue
		case c == ']':
			return row, nil
		default:
			return nil, gridParseErrorf("unexpected %q at offset %d", c, sc.pos-1)
		}
	}
}

func (sc *gridScanner) number() (float64, error) {
	sc.skipSpace()
	start := sc.pos
	for sc.pos < len(sc.s) && !isSpace(sc.s[sc.pos]) && sc.s[sc.pos] != ',' && sc.s[sc.pos] != ']' && sc.s[sc.pos] != '[' {
		sc.pos++
	}
	if start == sc.pos {
		return 0, gridParseErrorf("expected number at offset %d", start)
	}
	value, err := strconv.ParseFloat(sc.s[start:sc.pos], 64)
	if err != nil {
		return 0, gridParseErrorf("invalid number %q at offset %d", sc.s[start:sc.pos], start)
	}
	return value, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
