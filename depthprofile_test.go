package depthprofile_test

import (
	"errors"
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/cpbynwol/go-depthprofile"
)

// newTestRecord returns the 2x2 record spanning (0, 0) to (1, 1).
func newTestRecord() *depthprofile.GridRecord {
	return &depthprofile.GridRecord{
		Name:        "test",
		Matrix:      [][]float64{{10, 20}, {30, -5}},
		TopLeft:     depthprofile.LatLon{Lat: 1, Lon: 0},
		BottomRight: depthprofile.LatLon{Lat: 0, Lon: 1},
	}
}

func TestGridRecord_Axes(t *testing.T) {
	record := newTestRecord()
	assert.Equal(t, depthprofile.CoordinateAxes{
		Lon: []float64{0, 1},
		Lat: []float64{0, 1},
	}, record.Axes())
	assert.Equal(t, depthprofile.BoundingBox{MinLon: 0, MinLat: 0, MaxLon: 1, MaxLat: 1}, record.BoundingBox())
}

func TestGridRecord_AxesProperties(t *testing.T) {
	record := &depthprofile.GridRecord{
		Matrix:      make([][]float64, 7),
		TopLeft:     depthprofile.LatLon{Lat: 43.7, Lon: 7.1},
		BottomRight: depthprofile.LatLon{Lat: 43.1, Lon: 8.3},
	}
	for i := range record.Matrix {
		record.Matrix[i] = make([]float64, 13)
	}
	assert.NoError(t, record.Validate())

	axes := record.Axes()
	assert.Equal(t, 13, len(axes.Lon))
	assert.Equal(t, 7, len(axes.Lat))
	assert.Equal(t, 7.1, axes.Lon[0])
	assert.Equal(t, 8.3, axes.Lon[len(axes.Lon)-1])
	assert.Equal(t, 43.1, axes.Lat[0])
	assert.Equal(t, 43.7, axes.Lat[len(axes.Lat)-1])
	for _, axis := range [][]float64{axes.Lon, axes.Lat} {
		step := axis[1] - axis[0]
		for i := 1; i < len(axis); i++ {
			assert.True(t, axis[i] > axis[i-1])
			assert.True(t, math.Abs(axis[i]-axis[i-1]-step) < 1e-9)
		}
	}
}

func TestGridRecord_Validate(t *testing.T) {
	for _, tc := range []struct {
		name        string
		record      depthprofile.GridRecord
		expectedErr error
	}{
		{
			name:   "valid",
			record: *newTestRecord(),
		},
		{
			name: "one_row",
			record: depthprofile.GridRecord{
				Matrix:      [][]float64{{1, 2}},
				TopLeft:     depthprofile.LatLon{Lat: 1, Lon: 0},
				BottomRight: depthprofile.LatLon{Lat: 0, Lon: 1},
			},
			expectedErr: depthprofile.ErrGridParse,
		},
		{
			name: "one_column",
			record: depthprofile.GridRecord{
				Matrix:      [][]float64{{1}, {2}},
				TopLeft:     depthprofile.LatLon{Lat: 1, Lon: 0},
				BottomRight: depthprofile.LatLon{Lat: 0, Lon: 1},
			},
			expectedErr: depthprofile.ErrGridParse,
		},
		{
			name: "ragged",
			record: depthprofile.GridRecord{
				Matrix:      [][]float64{{1, 2}, {3}},
				TopLeft:     depthprofile.LatLon{Lat: 1, Lon: 0},
				BottomRight: depthprofile.LatLon{Lat: 0, Lon: 1},
			},
			expectedErr: depthprofile.ErrGridParse,
		},
		{
			name: "inverted_latitude",
			record: depthprofile.GridRecord{
				Matrix:      [][]float64{{1, 2}, {3, 4}},
				TopLeft:     depthprofile.LatLon{Lat: 0, Lon: 0},
				BottomRight: depthprofile.LatLon{Lat: 1, Lon: 1},
			},
			expectedErr: depthprofile.ErrBoundingBoxParse,
		},
		{
			name: "zero_width",
			record: depthprofile.GridRecord{
				Matrix:      [][]float64{{1, 2}, {3, 4}},
				TopLeft:     depthprofile.LatLon{Lat: 1, Lon: 1},
				BottomRight: depthprofile.LatLon{Lat: 0, Lon: 1},
			},
			expectedErr: depthprofile.ErrBoundingBoxParse,
		},
		{
			name: "infinite_corner",
			record: depthprofile.GridRecord{
				Matrix:      [][]float64{{1, 2}, {3, 4}},
				TopLeft:     depthprofile.LatLon{Lat: math.Inf(1), Lon: 0},
				BottomRight: depthprofile.LatLon{Lat: 0, Lon: 1},
			},
			expectedErr: depthprofile.ErrBoundingBoxParse,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.record.Validate()
			if tc.expectedErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.IsError(t, err, tc.expectedErr)
			var recordErr *depthprofile.RecordError
			assert.True(t, errors.As(err, &recordErr))
			assert.Equal(t, -1, recordErr.Index)
		})
	}
}

func TestBoundingBox_Contains(t *testing.T) {
	bb := depthprofile.BoundingBox{MinLon: 0, MinLat: 0, MaxLon: 1, MaxLat: 1}
	assert.True(t, bb.Contains(depthprofile.GeoPoint{Lon: 0.5, Lat: 0.5}))
	assert.True(t, bb.Contains(depthprofile.GeoPoint{Lon: 0, Lat: 1}))
	assert.False(t, bb.Contains(depthprofile.GeoPoint{Lon: -0.1, Lat: 0.5}))
	assert.False(t, bb.Contains(depthprofile.GeoPoint{Lon: 0.5, Lat: 1.1}))
}

func TestRecordError(t *testing.T) {
	err := &depthprofile.RecordError{Index: 3, Err: depthprofile.ErrMalformedRecord}
	assert.Equal(t, "record 3: malformed record", err.Error())
	err.Location = "bay"
	assert.Equal(t, `location "bay": malformed record`, err.Error())
	assert.IsError(t, err, depthprofile.ErrMalformedRecord)
}
