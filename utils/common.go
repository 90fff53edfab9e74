package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// WebMercatorExtent is the numeric bound on every WMS bbox component.
const WebMercatorExtent = 20037508.342789244

// CRSExtent holds the numeric extent advertised and enforced for one
// coordinate reference system.
type CRSExtent struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Supported CRS sets. Keys are lower-cased CRS identifiers. The extents
// double as the bounding boxes emitted in the capability documents.
// epsg:4326 axis order is lat,lon as per example 2, page 18 of the WMS
// 1.3.0 specification.
var WMSCRSExtents = map[string]CRSExtent{
	"epsg:3857": {MinX: -WebMercatorExtent, MinY: -WebMercatorExtent, MaxX: WebMercatorExtent, MaxY: WebMercatorExtent},
	"epsg:4326": {MinX: -90, MinY: -180, MaxX: 90, MaxY: 180},
	"crs:84":    {MinX: -180, MinY: -90, MaxX: 180, MaxY: 90},
}

var WCSCRSExtents = map[string]CRSExtent{
	"epsg:4326": {MinX: -90, MinY: -180, MaxX: 90, MaxY: 180},
	"crs:84":    {MinX: -180, MinY: -90, MaxX: 180, MaxY: 90},
}

// NativeCRS is the projection coverages are stored and served in when
// the request does not say otherwise.
const NativeCRS = "epsg:4326"

// Identifier names a coverage or map layer in a request.
type Identifier struct {
	Value string
}

func (id *Identifier) Validate() error {
	if len(strings.TrimSpace(id.Value)) == 0 {
		return NewOGCException("Coverage identifier validation error", ExcInvalidParameterValue, "COVERAGE")
	}
	return nil
}

// OutputFormat names the desired encoding of the response payload.
type OutputFormat struct {
	Value string
}

func (f *OutputFormat) Validate() error {
	if len(f.Value) == 0 {
		return NewOGCException("No output format specified", ExcInvalidFormat, "FORMAT")
	}
	return nil
}

// BoundingBox is the spatial domain of a request, with corners in the
// axis order of its CRS.
type BoundingBox struct {
	CRS         string
	LowerCorner [2]float64
	UpperCorner [2]float64
}

func (b *BoundingBox) Validate() error {
	for _, v := range []float64{b.LowerCorner[0], b.LowerCorner[1], b.UpperCorner[0], b.UpperCorner[1]} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewOGCException("Bounding box must be all finite values", ExcInvalidParameterValue, "BBOX")
		}
	}
	return nil
}

// TemporalSubset restricts a request to a single time instant.
// Multiple comma separated times are rejected at parse time.
type TemporalSubset struct {
	TimePosition string
}

// parseBBox parses the 4-valued comma separated minx,miny,maxx,maxy
// form of the BBOX parameter. Whitespace inside the value is ignored.
func parseBBox(raw string) ([]float64, error) {
	parts := strings.Split(strings.Replace(raw, " ", "", -1), ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must contain 4 comma separated values: %s", raw)
	}
	bbox := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox component %s: %v", p, err)
		}
		bbox[i] = v
	}
	return bbox, nil
}

// resolveCRS84 applies the one cross-cutting axis rule of this server:
// CRS:84 is epsg:4326 with lon,lat axis order, so the bbox corners are
// rebuilt with X/Y swapped and the CRS rewritten to the EPSG code. The
// same rule runs on the WCS and WMS paths.
func resolveCRS84(crs string, bbox []float64) (string, *BoundingBox) {
	if crs == "crs:84" {
		return NativeCRS, &BoundingBox{
			CRS:         NativeCRS,
			LowerCorner: [2]float64{bbox[1], bbox[0]},
			UpperCorner: [2]float64{bbox[3], bbox[2]},
		}
	}
	return crs, &BoundingBox{
		CRS:         crs,
		LowerCorner: [2]float64{bbox[0], bbox[1]},
		UpperCorner: [2]float64{bbox[2], bbox[3]},
	}
}
