package depthprofile

import (
	"math"
	"sort"
)

// A NearestIndex finds the sample nearest to a point.
type NearestIndex interface {
	// Nearest returns the row-major index of the sample nearest to p.
	Nearest(p GeoPoint) int
}

// A gridIndex exploits the regularity of the sample cloud: the cloud is the
// Cartesian product of two sorted axes, so the squared planar distance
// separates into a longitude term and a latitude term that can be minimized
// independently by binary search.
type gridIndex struct {
	lon []float64
	lat []float64
}

func newGridIndex(axes CoordinateAxes) *gridIndex {
	return &gridIndex{
		lon: axes.Lon,
		lat: axes.Lat,
	}
}

func (g *gridIndex) Nearest(p GeoPoint) int {
	return nearestOnAxis(g.lat, p.Lat)*len(g.lon) + nearestOnAxis(g.lon, p.Lon)
}

// nearestOnAxis returns the index of the value in the sorted axis nearest to
// x, preferring the lower index on ties.
func nearestOnAxis(axis []float64, x float64) int {
	i := sort.SearchFloat64s(axis, x)
	switch {
	case i == 0:
		return 0
	case i == len(axis):
		return len(axis) - 1
	case x-axis[i-1] <= axis[i]-x:
		return i - 1
	default:
		return i
	}
}

// A bruteForceIndex searches every sample.
type bruteForceIndex struct {
	cloud []Sample
}

func newBruteForceIndex(cloud []Sample) *bruteForceIndex {
	return &bruteForceIndex{
		cloud: cloud,
	}
}

func (b *bruteForceIndex) Nearest(p GeoPoint) int {
	nearest := 0
	minDistance2 := math.Inf(1)
	for i, sample := range b.cloud {
		dx, dy := sample.Lon-p.Lon, sample.Lat-p.Lat
		if distance2 := dx*dx + dy*dy; distance2 < minDistance2 {
			nearest = i
			minDistance2 = distance2
		}
	}
	return nearest
}
