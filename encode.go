package depthprofile

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"math"

	kml "github.com/twpayne/go-kml"
	"github.com/twpayne/go-polyline"
)

// Names of the arrays in serialized profiles.
const (
	keyBonder = "Bonder"
	keyRange  = "Range"
	keyBottom = "Bottom"
	keyTop    = "Top"
)

// A mat4Header is the header of a MATLAB Level 4 matrix. Type 0 is a full
// little-endian IEEE double matrix.
type mat4Header struct {
	Type   int32
	MRows  int32
	NCols  int32
	ImagF  int32
	NamLen int32
}

// bonder returns p's bounding box as the rows (minLon, minLat) and (maxLon,
// maxLat).
func (p *Profile) bonder() [2][2]float64 {
	return [2][2]float64{
		{p.BoundingBox.MinLon, p.BoundingBox.MinLat},
		{p.BoundingBox.MaxLon, p.BoundingBox.MaxLat},
	}
}

// WriteMAT writes p to w as a MATLAB Level 4 file containing the matrices
// Bonder (2x2), Range (1xN), Bottom (1xN, masked samples are NaN), and Top
// (1xN).
func (p *Profile) WriteMAT(w io.Writer) error {
	bonder := p.bonder()
	for _, m := range []struct {
		name string
		rows int
		cols int
		data []float64 // Column-major.
	}{
		{keyBonder, 2, 2, []float64{bonder[0][0], bonder[1][0], bonder[0][1], bonder[1][1]}},
		{keyRange, 1, p.Len(), p.DistanceKm},
		{keyBottom, 1, p.Len(), p.Elevation},
		{keyTop, 1, p.Len(), p.SurfaceReference},
	} {
		if err := writeMAT4Matrix(w, m.name, m.rows, m.cols, m.data); err != nil {
			return err
		}
	}
	return nil
}

func writeMAT4Matrix(w io.Writer, name string, rows, cols int, data []float64) error {
	header := mat4Header{
		MRows:  int32(rows),
		NCols:  int32(cols),
		NamLen: int32(len(name) + 1),
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	if _, err := io.WriteString(w, name+"\x00"); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, data)
}

type profileJSON struct {
	Location string        `json:"location"`
	Bonder   [2][2]float64 `json:"Bonder"`
	Range    []float64     `json:"Range"`
	Bottom   []*float64    `json:"Bottom"`
	Top      []float64     `json:"Top"`
	Path     string        `json:"path"`
}

// MarshalJSON implements encoding/json.Marshaler. Masked samples are encoded as
// null. The path is encoded as a polyline.
func (p *Profile) MarshalJSON() ([]byte, error) {
	bottom := make([]*float64, p.Len())
	for i := range p.Elevation {
		if !p.Masked(i) {
			bottom[i] = &p.Elevation[i]
		}
	}
	coords := make([][]float64, len(p.Path))
	for i, point := range p.Path {
		coords[i] = []float64{point.Lat, point.Lon}
	}
	return json.Marshal(&profileJSON{
		Location: p.Location,
		Bonder:   p.bonder(),
		Range:    p.DistanceKm,
		Bottom:   bottom,
		Top:      p.SurfaceReference,
		Path:     string(polyline.EncodeCoords(coords)),
	})
}

// UnmarshalJSON implements encoding/json.Unmarshaler.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var pj profileJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return err
	}
	coords, _, err := polyline.DecodeCoords([]byte(pj.Path))
	if err != nil {
		return err
	}
	*p = Profile{
		Location: pj.Location,
		BoundingBox: BoundingBox{
			MinLon: pj.Bonder[0][0],
			MinLat: pj.Bonder[0][1],
			MaxLon: pj.Bonder[1][0],
			MaxLat: pj.Bonder[1][1],
		},
		Path:             make([]GeoPoint, len(coords)),
		DistanceKm:       pj.Range,
		Elevation:        make([]float64, len(pj.Bottom)),
		SurfaceReference: pj.Top,
	}
	for i, coord := range coords {
		p.Path[i] = GeoPoint{Lon: coord[1], Lat: coord[0]}
	}
	for i, value := range pj.Bottom {
		if value == nil {
			p.Elevation[i] = math.NaN()
		} else {
			p.Elevation[i] = *value
		}
	}
	return nil
}

// WriteKML writes p's path to w as a KML line string. Altitudes are negated
// elevations, masked samples are at zero.
func (p *Profile) WriteKML(w io.Writer) error {
	coordinates := make([]kml.Coordinate, len(p.Path))
	for i, point := range p.Path {
		coordinates[i] = kml.Coordinate{
			Lon: point.Lon,
			Lat: point.Lat,
		}
		if i < len(p.Elevation) && !p.Masked(i) {
			coordinates[i].Alt = -p.Elevation[i]
		}
	}
	return kml.KML(
		kml.Document(
			kml.Name(p.Location),
			kml.Placemark(
				kml.Name(p.Location+" profile"),
				kml.LineString(
					kml.Coordinates(coordinates...),
				),
			),
		),
	).WriteIndent(w, "", "  ")
}
