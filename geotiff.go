package depthprofile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strconv"
	"strings"

	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff"
	_ "github.com/google/tiff/geotiff"
	"golang.org/x/image/tiff/lzw"
)

// invalidValue replaces nodata samples in imported grids.
const invalidValue = -1

var errShortRead = errors.New("short read")

// A geoTIFFIFD is a struct into which github.com/google/tiff can unmarshal an
// IFD.
type geoTIFFIFD struct {
	ImageWidth          uint16    `tiff:"field,tag=256"`
	ImageLength         uint16    `tiff:"field,tag=257"`
	BitsPerSample       uint16    `tiff:"field,tag=258"`
	Compression         uint16    `tiff:"field,tag=259"`
	SamplesPerPixel     uint16    `tiff:"field,tag=277"`
	PlanarConfiguration uint16    `tiff:"field,tag=284"`
	Predictor           uint16    `tiff:"field,tag=317"`
	TileWidth           uint16    `tiff:"field,tag=322"`
	TileLength          uint16    `tiff:"field,tag=323"`
	TileOffsets         []uint64  `tiff:"field,tag=324"`
	TileByteCounts      []uint64  `tiff:"field,tag=325"`
	SampleFormat        uint16    `tiff:"field,tag=339"`
	ModelPixelScaleTag  []float64 `tiff:"field,tag=33550"`
	ModelTiepointTag    []float64 `tiff:"field,tag=33922"`
	GeoKeyDirectoryTag  []uint16  `tiff:"field,tag=34735"`
	GeoDoubleParamsTag  []float64 `tiff:"field,tag=34736"`
	GeoASCIIParamsTag   string    `tiff:"field,tag=34737"`
	GDALNoData          string    `tiff:"field,tag=42113"`
}

// A geoTIFFRaster is a decoded single band GeoTIFF raster.
type geoTIFFRaster struct {
	data                      []byte
	imageWidth                int
	imageLength               int
	tileWidth                 int
	tileLength                int
	tilesAcross               int
	tilesDown                 int
	tileOffsets               []uint64
	tileByteCounts            []uint64
	tileSampleCount           int
	tileByteCountUncompressed int
	compressed                bool
	noData                    float64
	hasNoData                 bool
	pixelIsPoint              bool
	scaleX                    float64
	scaleY                    float64
	translateX                float64
	translateY                float64
}

// ReadGeoTIFF reads filename from fsys as the grid record name. The file must be
// a tiled, single band, 32-bit float GeoTIFF in geographic WGS-84 coordinates,
// uncompressed or LZW compressed. Nodata samples become -1.
func ReadGeoTIFF(fsys fs.FS, filename, name string) (*GridRecord, error) {
	data, err := fs.ReadFile(fsys, filename)
	if err != nil {
		return nil, err
	}
	r, err := newGeoTIFFRaster(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	matrix, err := r.matrix()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	// Sample positions span pixel centers.
	offset := 0.5
	if r.pixelIsPoint {
		offset = 0
	}
	record := &GridRecord{
		Name:   name,
		Matrix: matrix,
		TopLeft: LatLon{
			Lat: r.translateY - offset*r.scaleY,
			Lon: r.translateX + offset*r.scaleX,
		},
		BottomRight: LatLon{
			Lat: r.translateY - (float64(r.imageLength-1)+offset)*r.scaleY,
			Lon: r.translateX + (float64(r.imageWidth-1)+offset)*r.scaleX,
		},
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

func newGeoTIFFRaster(data []byte) (*geoTIFFRaster, error) {
	if !bytes.HasPrefix(data, []byte("II")) {
		return nil, fmt.Errorf("big endian TIFF: %w", errors.ErrUnsupported)
	}

	tiffTIFF, err := tiff.Parse(bytes.NewReader(data), tiff.GetTagSpace("GeoTIFF"), nil)
	if err != nil {
		return nil, err
	}
	if len(tiffTIFF.IFDs()) != 1 {
		return nil, fmt.Errorf("found %d IFDs, expected 1", len(tiffTIFF.IFDs()))
	}
	var ifd geoTIFFIFD
	if err := tiff.UnmarshalIFD(tiffTIFF.IFDs()[0], &ifd); err != nil {
		return nil, err
	}

	if ifd.BitsPerSample != 32 ||
		ifd.Compression != 1 && ifd.Compression != 5 ||
		ifd.SamplesPerPixel != 1 ||
		ifd.PlanarConfiguration > 1 ||
		ifd.Predictor > 1 ||
		ifd.SampleFormat != 3 ||
		ifd.TileWidth == 0 || ifd.TileLength == 0 ||
		len(ifd.ModelPixelScaleTag) != 3 ||
		len(ifd.ModelTiepointTag) != 6 || ifd.ModelTiepointTag[0] != 0 || ifd.ModelTiepointTag[1] != 0 {
		return nil, errors.ErrUnsupported
	}

	geoKeys, err := parseGeoKeys(ifd.GeoKeyDirectoryTag, ifd.GeoDoubleParamsTag, []byte(ifd.GeoASCIIParamsTag))
	if err != nil {
		return nil, err
	}
	if err := geoKeys.checkGeographicWGS84(); err != nil {
		return nil, err
	}

	r := &geoTIFFRaster{
		data:           data,
		imageWidth:     int(ifd.ImageWidth),
		imageLength:    int(ifd.ImageLength),
		tileWidth:      int(ifd.TileWidth),
		tileLength:     int(ifd.TileLength),
		tileOffsets:    ifd.TileOffsets,
		tileByteCounts: ifd.TileByteCounts,
		compressed:     ifd.Compression == 5,
		pixelIsPoint:   geoKeys.Params[geoKeyRasterType] == rasterPixelIsPoint,
		scaleX:         ifd.ModelPixelScaleTag[0],
		scaleY:         ifd.ModelPixelScaleTag[1],
		translateX:     ifd.ModelTiepointTag[3],
		translateY:     ifd.ModelTiepointTag[4],
	}
	r.tilesAcross = (r.imageWidth + r.tileWidth - 1) / r.tileWidth
	r.tilesDown = (r.imageLength + r.tileLength - 1) / r.tileLength
	tilesPerImage := r.tilesAcross * r.tilesDown
	if len(r.tileByteCounts) != tilesPerImage || len(r.tileOffsets) != tilesPerImage {
		return nil, errors.New("incorrect number of tile byte counts or offsets")
	}
	r.tileSampleCount = r.tileWidth * r.tileLength
	r.tileByteCountUncompressed = 4 * r.tileSampleCount
	if r.scaleX <= 0 || r.scaleY <= 0 {
		return nil, fmt.Errorf("pixel scale %v: %w", ifd.ModelPixelScaleTag, errors.ErrUnsupported)
	}

	if noData := strings.TrimSpace(strings.TrimRight(ifd.GDALNoData, "\x00")); noData != "" {
		r.noData, err = strconv.ParseFloat(noData, 64)
		if err != nil {
			return nil, fmt.Errorf("nodata %q: %w", noData, err)
		}
		r.noData = float64(float32(r.noData))
		r.hasNoData = true
	}

	return r, nil
}

// matrix returns r's samples with the southernmost row first.
func (r *geoTIFFRaster) matrix() ([][]float64, error) {
	matrix := make([][]float64, r.imageLength)
	for i := range matrix {
		matrix[i] = make([]float64, r.imageWidth)
	}
	for tileRow := range r.tilesDown {
		for tileCol := range r.tilesAcross {
			tileSamples, err := r.tileSamples(tileCol, tileRow)
			if err != nil {
				return nil, err
			}
			for y := range r.tileLength {
				imageY := tileRow*r.tileLength + y
				if imageY >= r.imageLength {
					break
				}
				row := matrix[r.imageLength-1-imageY]
				for x := range r.tileWidth {
					imageX := tileCol*r.tileWidth + x
					if imageX >= r.imageWidth {
						break
					}
					row[imageX] = r.sampleValue(tileSamples[y*r.tileWidth+x])
				}
			}
		}
	}
	return matrix, nil
}

// tileSamples returns the decoded samples of the tile at tileCol, tileRow.
func (r *geoTIFFRaster) tileSamples(tileCol, tileRow int) ([]float32, error) {
	tileIndex := tileCol + r.tilesAcross*tileRow
	tileOffset, tileByteCount := r.tileOffsets[tileIndex], r.tileByteCounts[tileIndex]
	if tileOffset+tileByteCount > uint64(len(r.data)) {
		return nil, errShortRead
	}
	tileData := r.data[tileOffset : tileOffset+tileByteCount]
	if r.compressed {
		var err error
		if tileData, err = r.decompressTileData(tileData); err != nil {
			return nil, err
		}
	}
	if len(tileData) < r.tileByteCountUncompressed {
		return nil, errShortRead
	}
	tileSamples := make([]float32, r.tileSampleCount)
	for i := range r.tileSampleCount {
		tileSamples[i] = math.Float32frombits(binary.LittleEndian.Uint32(tileData[4*i : 4*(i+1)]))
	}
	return tileSamples, nil
}

// decompressTileData decompresses LZW compressed tile data.
func (r *geoTIFFRaster) decompressTileData(compressedData []byte) ([]byte, error) {
	tileData := make([]byte, r.tileByteCountUncompressed)
	lzwReader := lzw.NewReader(bytes.NewReader(compressedData), lzw.MSB, 8)
	defer lzwReader.Close()
	for bytesRead := 0; bytesRead < r.tileByteCountUncompressed; {
		n, err := lzwReader.Read(tileData[bytesRead:])
		if err != nil {
			return nil, err
		}
		bytesRead += n
	}
	return tileData, nil
}

func (r *geoTIFFRaster) sampleValue(sample float32) float64 {
	value := float64(sample)
	if math.IsNaN(value) || r.hasNoData && value == r.noData {
		return invalidValue
	}
	return value
}
