package depthprofile

import (
	"errors"
	"fmt"
)

var errGeoKeyParse = errors.New("geokey parse error")

type geoKey uint16

const (
	geoKeyModelType    geoKey = 1024
	geoKeyRasterType   geoKey = 1025
	geoKeyCitation     geoKey = 1026
	geoKeyGeodeticCRS  geoKey = 2048
	geoKeyGeogCitation geoKey = 2049
	geoKeyAngularUnits geoKey = 2054
	geoKeyProjectedCRS geoKey = 3072
)

const (
	modelTypeGeographic = 2
	rasterPixelIsPoint  = 2
	crsWGS84            = 4326
	angularUnitsDegree  = 9102
)

// geoKeys are the parsed contents of a GeoKeyDirectoryTag.
type geoKeys struct {
	Params       map[geoKey]int
	DoubleParams map[geoKey]float64
	ASCIIParams  map[geoKey]string
}

func parseGeoKeys(directory []uint16, doubleParams []float64, asciiParams []byte) (*geoKeys, error) {
	if len(directory) < 4 {
		return nil, errGeoKeyParse
	}

	if keyDirectoryVersion := int(directory[0]); keyDirectoryVersion != 1 {
		return nil, errGeoKeyParse
	}
	if keyRevision := int(directory[1]); keyRevision != 1 {
		return nil, errGeoKeyParse
	}
	if minorRevision := int(directory[2]); minorRevision != 0 && minorRevision != 1 {
		return nil, errGeoKeyParse
	}
	numberOfKeys := int(directory[3])
	if len(directory) != 4+4*numberOfKeys {
		return nil, errGeoKeyParse
	}

	keys := &geoKeys{
		Params:       make(map[geoKey]int),
		DoubleParams: make(map[geoKey]float64),
		ASCIIParams:  make(map[geoKey]string),
	}
	for i := range numberOfKeys {
		keyValues := directory[4+4*i : 4+4*(i+1)]
		key := geoKey(keyValues[0])
		tiffTagLocation := int(keyValues[1])
		count := int(keyValues[2])
		valueOffset := int(keyValues[3])
		switch tiffTagLocation {
		case 0:
			if count != 1 {
				return nil, errGeoKeyParse
			}
			keys.Params[key] = valueOffset
		case 34736: // GeoDoubleParamsTag
			if count != 1 {
				return nil, errors.ErrUnsupported
			}
			if valueOffset >= len(doubleParams) {
				return nil, fmt.Errorf("key %d: %w", key, errGeoKeyParse)
			}
			keys.DoubleParams[key] = doubleParams[valueOffset]
		case 34737: // GeoASCIIParamsTag
			if valueOffset+count > len(asciiParams) {
				return nil, fmt.Errorf("key %d: %w", key, errGeoKeyParse)
			}
			keys.ASCIIParams[key] = string(asciiParams[valueOffset : valueOffset+count])
		default:
			return nil, errors.ErrUnsupported
		}
	}
	return keys, nil
}

// checkGeographicWGS84 returns an error unless k describes geographic WGS-84
// coordinates in degrees.
func (k *geoKeys) checkGeographicWGS84() error {
	if modelType := k.Params[geoKeyModelType]; modelType != modelTypeGeographic {
		return fmt.Errorf("model type %d: %w", modelType, errors.ErrUnsupported)
	}
	if _, ok := k.Params[geoKeyProjectedCRS]; ok {
		return fmt.Errorf("projected CRS: %w", errors.ErrUnsupported)
	}
	if crs, ok := k.Params[geoKeyGeodeticCRS]; ok && crs != crsWGS84 {
		return fmt.Errorf("EPSG:%d: %w", crs, errors.ErrUnsupported)
	}
	if units, ok := k.Params[geoKeyAngularUnits]; ok && units != angularUnitsDegree {
		return fmt.Errorf("angular units %d: %w", units, errors.ErrUnsupported)
	}
	return nil
}
