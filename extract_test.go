package depthprofile_test

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/cpbynwol/go-depthprofile"
)

func TestProfileRequest_Validate(t *testing.T) {
	start := depthprofile.GeoPoint{Lon: 0, Lat: 0}
	end := depthprofile.GeoPoint{Lon: 1, Lat: 0}
	for _, tc := range []struct {
		name        string
		req         depthprofile.ProfileRequest
		expectedErr error
	}{
		{
			name: "valid",
			req:  depthprofile.ProfileRequest{Start: start, End: end, Samples: 2},
		},
		{
			name: "max_samples",
			req:  depthprofile.ProfileRequest{Start: start, End: end, Samples: depthprofile.MaxSamples},
		},
		{
			name:        "one_sample",
			req:         depthprofile.ProfileRequest{Start: start, End: end, Samples: 1},
			expectedErr: depthprofile.ErrInvalidRequest,
		},
		{
			name:        "too_many_samples",
			req:         depthprofile.ProfileRequest{Start: start, End: end, Samples: depthprofile.MaxSamples + 1},
			expectedErr: depthprofile.ErrInvalidRequest,
		},
		{
			name:        "zero_length",
			req:         depthprofile.ProfileRequest{Start: start, End: start, Samples: 10},
			expectedErr: depthprofile.ErrInvalidRequest,
		},
		{
			name:        "nan_start",
			req:         depthprofile.ProfileRequest{Start: depthprofile.GeoPoint{Lon: math.NaN()}, End: end, Samples: 10},
			expectedErr: depthprofile.ErrInvalidRequest,
		},
		{
			name:        "infinite_end",
			req:         depthprofile.ProfileRequest{Start: start, End: depthprofile.GeoPoint{Lat: math.Inf(-1)}, Samples: 10},
			expectedErr: depthprofile.ErrInvalidRequest,
		},
		{
			name: "half_circumference",
			req:  depthprofile.ProfileRequest{Start: depthprofile.GeoPoint{Lon: -90}, End: depthprofile.GeoPoint{Lon: 90}, Samples: 10},
		},
		{
			name:        "across_antimeridian",
			req:         depthprofile.ProfileRequest{Start: depthprofile.GeoPoint{Lon: -170}, End: depthprofile.GeoPoint{Lon: 170}, Samples: 5},
			expectedErr: depthprofile.ErrInvalidRequest,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.expectedErr == nil {
				assert.NoError(t, err)
			} else {
				assert.IsError(t, err, tc.expectedErr)
			}
		})
	}
}

func TestExtract_LongLines(t *testing.T) {
	field, err := depthprofile.BuildField(&depthprofile.GridRecord{
		Name:        "dateline",
		Matrix:      [][]float64{{10, 20}, {30, 40}},
		TopLeft:     depthprofile.LatLon{Lat: 1, Lon: -171},
		BottomRight: depthprofile.LatLon{Lat: -1, Lon: -169},
	})
	assert.NoError(t, err)

	_, err = depthprofile.Extract(field, depthprofile.ProfileRequest{
		Start:   depthprofile.GeoPoint{Lon: -170, Lat: 0},
		End:     depthprofile.GeoPoint{Lon: 170, Lat: 0},
		Samples: 5,
	})
	assert.IsError(t, err, depthprofile.ErrInvalidRequest)

	profile, err := depthprofile.Extract(field, depthprofile.ProfileRequest{
		Start:   depthprofile.GeoPoint{Lon: -170, Lat: 0},
		End:     depthprofile.GeoPoint{Lon: 10, Lat: 0},
		Samples: 5,
	})
	assert.NoError(t, err)
	for k := 1; k < profile.Len(); k++ {
		assert.True(t, profile.DistanceKm[k] > profile.DistanceKm[k-1], "distance %d: %v", k, profile.DistanceKm)
	}
}

func TestExtract(t *testing.T) {
	field, err := depthprofile.BuildField(newTestRecord())
	assert.NoError(t, err)

	profile, err := depthprofile.Extract(field, depthprofile.ProfileRequest{
		Start:   depthprofile.GeoPoint{Lon: 0, Lat: 0},
		End:     depthprofile.GeoPoint{Lon: 1, Lat: 0},
		Samples: 3,
	})
	assert.NoError(t, err)

	assert.Equal(t, "test", profile.Location)
	assert.Equal(t, 3, profile.Len())
	assert.Equal(t, []depthprofile.GeoPoint{
		{Lon: 0, Lat: 0},
		{Lon: 0.5, Lat: 0},
		{Lon: 1, Lat: 0},
	}, profile.Path)
	for i, expected := range []float64{0, 55.6, 111.2} {
		assert.True(t, math.Abs(profile.DistanceKm[i]-expected) < 0.2, "distance %d: %f", i, profile.DistanceKm[i])
	}
	assert.Equal(t, []float64{10, 10, 20}, profile.Elevation)
	assert.Equal(t, []float64{0, 0, 0}, profile.SurfaceReference)
}

func TestExtract_Masked(t *testing.T) {
	field, err := depthprofile.BuildField(&depthprofile.GridRecord{
		Name:        "masked",
		Matrix:      [][]float64{{10, 0}, {math.NaN(), -5}},
		TopLeft:     depthprofile.LatLon{Lat: 1, Lon: 0},
		BottomRight: depthprofile.LatLon{Lat: 0, Lon: 1},
	})
	assert.NoError(t, err)

	profile, err := depthprofile.Extract(field, depthprofile.ProfileRequest{
		Start:   depthprofile.GeoPoint{Lon: 0, Lat: 0},
		End:     depthprofile.GeoPoint{Lon: 1, Lat: 1},
		Samples: 2,
	})
	assert.NoError(t, err)
	assert.Equal(t, 10.0, profile.Elevation[0])
	assert.False(t, profile.Masked(0))
	assert.True(t, profile.Masked(1))

	profile, err = depthprofile.Extract(field, depthprofile.ProfileRequest{
		Start:   depthprofile.GeoPoint{Lon: 1, Lat: 0},
		End:     depthprofile.GeoPoint{Lon: 0, Lat: 1},
		Samples: 2,
	})
	assert.NoError(t, err)
	assert.True(t, profile.Masked(0))
	assert.True(t, profile.Masked(1))
}

func TestExtract_Domain(t *testing.T) {
	field, err := depthprofile.BuildField(newTestRecord())
	assert.NoError(t, err)

	_, err = depthprofile.Extract(field, depthprofile.ProfileRequest{
		Start:   depthprofile.GeoPoint{Lon: 2, Lat: 2},
		End:     depthprofile.GeoPoint{Lon: 3, Lat: 3},
		Samples: 10,
	})
	assert.IsError(t, err, depthprofile.ErrOutOfDomain)

	profile, err := depthprofile.Extract(field, depthprofile.ProfileRequest{
		Start:   depthprofile.GeoPoint{Lon: 0.5, Lat: 0.5},
		End:     depthprofile.GeoPoint{Lon: 3, Lat: 0.5},
		Samples: 10,
	})
	assert.NoError(t, err)
	assert.Equal(t, 10, profile.Len())

	_, err = depthprofile.Extract(field, depthprofile.ProfileRequest{
		Start:   depthprofile.GeoPoint{Lon: 0.5, Lat: 0.5},
		End:     depthprofile.GeoPoint{Lon: 0.5, Lat: 0.5},
		Samples: 10,
	})
	assert.IsError(t, err, depthprofile.ErrInvalidRequest)
}

func TestExtract_Properties(t *testing.T) {
	record := &depthprofile.GridRecord{
		Name:        "bay",
		Matrix:      make([][]float64, 40),
		TopLeft:     depthprofile.LatLon{Lat: 44.0, Lon: -2.0},
		BottomRight: depthprofile.LatLon{Lat: 43.0, Lon: -1.0},
	}
	for i := range record.Matrix {
		record.Matrix[i] = make([]float64, 50)
		for j := range record.Matrix[i] {
			record.Matrix[i][j] = float64((i*7+j*13)%23) - 4
		}
	}
	field, err := depthprofile.BuildField(record)
	assert.NoError(t, err)

	req := depthprofile.ProfileRequest{
		Start:   depthprofile.GeoPoint{Lon: -1.9, Lat: 43.1},
		End:     depthprofile.GeoPoint{Lon: -1.2, Lat: 43.8},
		Samples: 500,
	}
	profile, err := depthprofile.Extract(field, req)
	assert.NoError(t, err)

	assert.Equal(t, req.Samples, profile.Len())
	assert.Equal(t, req.Samples, len(profile.Path))
	assert.Equal(t, req.Samples, len(profile.Elevation))
	assert.Equal(t, req.Start, profile.Path[0])
	assert.Equal(t, req.End, profile.Path[len(profile.Path)-1])
	assert.Equal(t, 0.0, profile.DistanceKm[0])
	for i := 1; i < profile.Len(); i++ {
		assert.True(t, profile.DistanceKm[i] > profile.DistanceKm[i-1])
	}
	assert.Equal(t, depthprofile.Distance(req.Start, req.End), profile.DistanceKm[profile.Len()-1])
	for i, value := range profile.Elevation {
		assert.True(t, profile.Masked(i) || value > 0)
	}

	again, err := depthprofile.Extract(field, req)
	assert.NoError(t, err)
	assert.Equal(t, profile.DistanceKm, again.DistanceKm)
	assert.Equal(t, profile.Path, again.Path)
	for i := range profile.Elevation {
		assert.Equal(t, math.Float64bits(profile.Elevation[i]), math.Float64bits(again.Elevation[i]))
	}
}

func TestDistance(t *testing.T) {
	for _, tc := range []struct {
		name     string
		a        depthprofile.GeoPoint
		b        depthprofile.GeoPoint
		expected float64
	}{
		{
			name:     "equator_degree",
			a:        depthprofile.GeoPoint{Lon: 0, Lat: 0},
			b:        depthprofile.GeoPoint{Lon: 1, Lat: 0},
			expected: 111.319,
		},
		{
			name:     "meridian_degree",
			a:        depthprofile.GeoPoint{Lon: 0, Lat: 0},
			b:        depthprofile.GeoPoint{Lon: 0, Lat: 1},
			expected: 110.574,
		},
		{
			name:     "same_point",
			a:        depthprofile.GeoPoint{Lon: 5, Lat: 45},
			b:        depthprofile.GeoPoint{Lon: 5, Lat: 45},
			expected: 0,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual := depthprofile.Distance(tc.a, tc.b)
			assert.True(t, math.Abs(actual-tc.expected) < 0.01, "%f", actual)
			assert.True(t, math.Abs(actual-depthprofile.Distance(tc.b, tc.a)) < 1e-9)
		})
	}
}

func TestProfile_Clone(t *testing.T) {
	field, err := depthprofile.BuildField(newTestRecord())
	assert.NoError(t, err)
	profile, err := depthprofile.Extract(field, depthprofile.ProfileRequest{
		Start:   depthprofile.GeoPoint{Lon: 0, Lat: 0},
		End:     depthprofile.GeoPoint{Lon: 1, Lat: 1},
		Samples: 4,
	})
	assert.NoError(t, err)
	clone := profile.Clone()
	clone.DistanceKm[1] = -1
	clone.Path[1].Lon = -1
	assert.NotEqual(t, clone.DistanceKm, profile.DistanceKm)
	assert.NotEqual(t, clone.Path, profile.Path)
}
