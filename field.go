package depthprofile

// A Sample is a single grid cell placed at its geographic coordinate.
type Sample struct {
	Lon   float64
	Lat   float64
	Value float64
}

// A CoordinateField answers nearest-value queries against a GridRecord. It is
// immutable once built and safe for concurrent use.
type CoordinateField struct {
	name        string
	boundingBox BoundingBox
	axes        CoordinateAxes
	rows        int
	cols        int
	cloud       []Sample
	index       NearestIndex
}

// A FieldOption sets an option on a CoordinateField.
type FieldOption func(*fieldOptions)

type fieldOptions struct {
	bruteForce bool
}

// WithBruteForceIndex makes the field search every sample for each query
// instead of using the regular grid index. It is only useful for small grids
// and for checking the grid index.
func WithBruteForceIndex() FieldOption {
	return func(o *fieldOptions) {
		o.bruteForce = true
	}
}

// BuildField returns a new CoordinateField for record.
func BuildField(record *GridRecord, options ...FieldOption) (*CoordinateField, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}
	var o fieldOptions
	for _, option := range options {
		option(&o)
	}

	axes := record.Axes()
	rows, cols := len(axes.Lat), len(axes.Lon)
	cloud := make([]Sample, 0, rows*cols)
	for i, lat := range axes.Lat {
		for j, lon := range axes.Lon {
			cloud = append(cloud, Sample{
				Lon:   lon,
				Lat:   lat,
				Value: record.Matrix[i][j],
			})
		}
	}

	f := &CoordinateField{
		name:        record.Name,
		boundingBox: record.BoundingBox(),
		axes:        axes,
		rows:        rows,
		cols:        cols,
		cloud:       cloud,
	}
	if o.bruteForce {
		f.index = newBruteForceIndex(cloud)
	} else {
		f.index = newGridIndex(axes)
	}
	return f, nil
}

// Name returns the name of f's location.
func (f *CoordinateField) Name() string {
	return f.name
}

// BoundingBox returns f's bounding box.
func (f *CoordinateField) BoundingBox() BoundingBox {
	return f.boundingBox
}

// Axes returns f's coordinate axes. The returned slices must not be modified.
func (f *CoordinateField) Axes() CoordinateAxes {
	return f.axes
}

// Size returns the number of rows and columns in f.
func (f *CoordinateField) Size() (int, int) {
	return f.rows, f.cols
}

// Samples returns f's samples in row-major order. The returned slice must not
// be modified.
func (f *CoordinateField) Samples() []Sample {
	return f.cloud
}

// Matrix returns a copy of f's values, one row per latitude.
func (f *CoordinateField) Matrix() [][]float64 {
	matrix := make([][]float64, f.rows)
	for i := range matrix {
		matrix[i] = make([]float64, f.cols)
		for j := range matrix[i] {
			matrix[i][j] = f.cloud[i*f.cols+j].Value
		}
	}
	return matrix
}

// Query returns the value of the sample nearest to each of points. Distance is
// planar Euclidean distance in (lon, lat) space. Ties resolve to the first
// sample in row-major order. Points outside f's bounding box resolve to the
// nearest edge sample.
func (f *CoordinateField) Query(points []GeoPoint) []float64 {
	values := make([]float64, len(points))
	for i, point := range points {
		values[i] = f.cloud[f.index.Nearest(point)].Value
	}
	return values
}
