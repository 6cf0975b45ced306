// Package depthprofile extracts elevation and depth profiles along lines
// between two geographic points from gridded terrain and bathymetry models.
package depthprofile

import "math"

// A GeoPoint is a geographic point.
type GeoPoint struct {
	Lon float64
	Lat float64
}

// A BoundingBox is a geographic bounding box.
type BoundingBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Contains returns whether p lies within b, edges included.
func (b BoundingBox) Contains(p GeoPoint) bool {
	return b.MinLon <= p.Lon && p.Lon <= b.MaxLon && b.MinLat <= p.Lat && p.Lat <= b.MaxLat
}

// A GridRecord is a named rectangular field of elevation-like values. Values
// less than or equal to zero are invalid and are masked from profiles.
//
// Row i of Matrix is paired with the i-th latitude counted from the southern
// edge, column j with the j-th longitude counted from the western edge.
type GridRecord struct {
	Name        string
	Matrix      [][]float64
	TopLeft     LatLon
	BottomRight LatLon
}

// A LatLon is a corner as stored in the catalog, latitude first.
type LatLon struct {
	Lat float64
	Lon float64
}

// Rows returns the number of rows in r.
func (r *GridRecord) Rows() int {
	return len(r.Matrix)
}

// Cols returns the number of columns in r.
func (r *GridRecord) Cols() int {
	if len(r.Matrix) == 0 {
		return 0
	}
	return len(r.Matrix[0])
}

// BoundingBox returns r's bounding box.
func (r *GridRecord) BoundingBox() BoundingBox {
	return BoundingBox{
		MinLon: r.TopLeft.Lon,
		MinLat: r.BottomRight.Lat,
		MaxLon: r.BottomRight.Lon,
		MaxLat: r.TopLeft.Lat,
	}
}

// Axes returns r's coordinate axes.
func (r *GridRecord) Axes() CoordinateAxes {
	return CoordinateAxes{
		Lon: linspace(r.TopLeft.Lon, r.BottomRight.Lon, r.Cols()),
		Lat: linspace(r.BottomRight.Lat, r.TopLeft.Lat, r.Rows()),
	}
}

// Validate checks that r is a non-degenerate rectangular grid with a proper
// bounding box.
func (r *GridRecord) Validate() error {
	rows, cols := r.Rows(), r.Cols()
	if rows < 2 || cols < 2 {
		return &RecordError{Index: -1, Location: r.Name, Err: gridParseErrorf("grid is %dx%d, need at least 2x2", rows, cols)}
	}
	for i, row := range r.Matrix {
		if len(row) != cols {
			return &RecordError{Index: -1, Location: r.Name, Err: gridParseErrorf("row %d has %d values, expected %d", i, len(row), cols)}
		}
	}
	for _, c := range []LatLon{r.TopLeft, r.BottomRight} {
		if !isFinite(c.Lat) || !isFinite(c.Lon) {
			return &RecordError{Index: -1, Location: r.Name, Err: boundingBoxParseErrorf("corner %v is not finite", c)}
		}
	}
	if r.TopLeft.Lat <= r.BottomRight.Lat || r.BottomRight.Lon <= r.TopLeft.Lon {
		return &RecordError{Index: -1, Location: r.Name, Err: boundingBoxParseErrorf("degenerate bounding box %v %v", r.TopLeft, r.BottomRight)}
	}
	return nil
}

// CoordinateAxes are the coordinates of a GridRecord's columns and rows. Both
// axes are strictly increasing.
type CoordinateAxes struct {
	Lon []float64
	Lat []float64
}

// linspace returns n evenly spaced values from start to stop inclusive. The
// last value is exactly stop.
func linspace(start, stop float64, n int) []float64 {
	values := make([]float64, n)
	switch n {
	case 0:
		return values
	case 1:
		values[0] = start
		return values
	}
	step := (stop - start) / float64(n-1)
	for i := range n {
		values[i] = start + float64(i)*step
	}
	values[n-1] = stop
	return values
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
