package depthprofile

import (
	"math"
	"slices"

	"github.com/tidwall/geodesic"
)

// MaxSamples is the maximum number of samples in a profile.
const MaxSamples = 10000

// A ProfileRequest requests a profile between two points.
type ProfileRequest struct {
	Start   GeoPoint
	End     GeoPoint
	Samples int
}

// Validate checks that r describes a non-degenerate line with a usable number
// of samples. The line may not span more than 180 degrees of longitude, beyond
// which distances from the start would decrease past the antipode.
func (r ProfileRequest) Validate() error {
	switch {
	case r.Samples < 2:
		return invalidRequestf("%d samples, need at least 2", r.Samples)
	case r.Samples > MaxSamples:
		return invalidRequestf("%d samples, maximum is %d", r.Samples, MaxSamples)
	case !isFinite(r.Start.Lon) || !isFinite(r.Start.Lat):
		return invalidRequestf("start %v is not finite", r.Start)
	case !isFinite(r.End.Lon) || !isFinite(r.End.Lat):
		return invalidRequestf("end %v is not finite", r.End)
	case r.Start == r.End:
		return invalidRequestf("start and end are both %v", r.Start)
	case math.Abs(r.End.Lon-r.Start.Lon) > 180:
		return invalidRequestf("%v to %v spans more than 180 degrees of longitude", r.Start, r.End)
	default:
		return nil
	}
}

// A Profile is a sequence of distance and elevation pairs along a line.
// Masked elevations are NaN.
type Profile struct {
	Location         string
	BoundingBox      BoundingBox
	Path             []GeoPoint
	DistanceKm       []float64
	Elevation        []float64
	SurfaceReference []float64
}

// Len returns the number of samples in p.
func (p *Profile) Len() int {
	return len(p.DistanceKm)
}

// Masked returns whether the i-th elevation is masked.
func (p *Profile) Masked(i int) bool {
	return math.IsNaN(p.Elevation[i])
}

// Extract returns the profile along the straight line in coordinate space from
// req.Start to req.End, sampled at req.Samples evenly spaced points. Distances
// are WGS-84 geodesic distances from req.Start to each sample, in kilometers.
// Elevations less than or equal to zero are masked.
func Extract(field *CoordinateField, req ProfileRequest) (*Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if bb := field.BoundingBox(); !bb.Contains(req.Start) && !bb.Contains(req.End) {
		return nil, outOfDomainf("%v and %v are both outside %v", req.Start, req.End, bb)
	}

	n := req.Samples
	path := make([]GeoPoint, n)
	distanceKm := make([]float64, n)
	for k := range n {
		t := float64(k) / float64(n-1)
		path[k] = GeoPoint{
			Lon: req.Start.Lon + t*(req.End.Lon-req.Start.Lon),
			Lat: req.Start.Lat + t*(req.End.Lat-req.Start.Lat),
		}
	}
	path[n-1] = req.End
	for k := 1; k < n; k++ {
		distanceKm[k] = Distance(req.Start, path[k])
	}

	elevation := field.Query(path)
	for k, value := range elevation {
		if !(value > 0) {
			elevation[k] = math.NaN()
		}
	}

	return &Profile{
		Location:         field.Name(),
		BoundingBox:      field.BoundingBox(),
		Path:             path,
		DistanceKm:       distanceKm,
		Elevation:        elevation,
		SurfaceReference: make([]float64, n),
	}, nil
}

// Distance returns the WGS-84 geodesic distance between a and b in kilometers.
func Distance(a, b GeoPoint) float64 {
	var s12 float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &s12, nil, nil)
	return s12 / 1000
}

// Clone returns a deep copy of p.
func (p *Profile) Clone() *Profile {
	return &Profile{
		Location:         p.Location,
		BoundingBox:      p.BoundingBox,
		Path:             slices.Clone(p.Path),
		DistanceKm:       slices.Clone(p.DistanceKm),
		Elevation:        slices.Clone(p.Elevation),
		SurfaceReference: slices.Clone(p.SurfaceReference),
	}
}
