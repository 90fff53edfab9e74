package utils

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// AllowedWMSFormats are the PNG MIME variants accepted for GetMap and
// GetLegendGraphic output.
var AllowedWMSFormats = map[string]bool{
	"image/png":            true,
	"image/png; mode=8bit": true,
	"image/png;mode=8-bit": true,
}

// WMSRegexpMap maps WMS request parameters to regular expressions used
// as a pre-filter when parsing, same idea as WCSRegexpMap.
var WMSRegexpMap = map[string]string{"service": `^(?i)WMS$`,
	"request": `^GetCapabilities$|^GetFeatureInfo$|^GetMap$|^GetLegendGraphic$`,
	"crs":     `^(?i)(?:[A-Z]+):(?:[0-9]+)$`,
	"bbox":    `^[-+]?[0-9]*\.?[0-9]*([eE][-+]?[0-9]+)?(,\s*[-+]?[0-9]*\.?[0-9]*([eE][-+]?[0-9]+)?){3}$`,
	"width":   `^[0-9]+$`,
	"height":  `^[0-9]+$`}

func CompileWMSRegexMap() map[string]*regexp.Regexp {
	REMap := make(map[string]*regexp.Regexp)
	for key, re := range WMSRegexpMap {
		REMap[key] = regexp.MustCompile(re)
	}

	return REMap
}

var wmsREMap = CompileWMSRegexMap()

func checkWMSField(key, value string) error {
	if re, ok := wmsREMap[key]; ok && !re.MatchString(value) {
		return fmt.Errorf("malformed %s value: %s", key, value)
	}
	return nil
}

// WMSGetCapabilities is a request to retrieve the WMS Capabilities
// document.
type WMSGetCapabilities struct {
	Service string
}

func (r *WMSGetCapabilities) LoadFromKV(args map[string]string) error {
	if args["request"] != "GetCapabilities" {
		return fmt.Errorf("not a GetCapabilities request: %s", args["request"])
	}
	r.Service = strings.ToUpper(args["service"])
	return nil
}

func (r *WMSGetCapabilities) Validate() error {
	if r.Service != "WMS" {
		return fmt.Errorf("WMS request validation error: service should be WMS")
	}
	return nil
}

// WMSGetMap is a request to render a single map layer into a PNG.
// Multi-layer rendering is not part of this protocol subset, so a
// comma in the layers value is a failure rather than a list.
type WMSGetMap struct {
	Service string
	Version string
	Layer   Identifier
	CRS     string
	BBox    *BoundingBox
	Width   int
	Height  int
	Time    string
	Format  string
}

func (r *WMSGetMap) LoadFromKV(args map[string]string) error {
	if strings.ToLower(args["request"]) != "getmap" {
		return fmt.Errorf("not a GetMap request: %s", args["request"])
	}
	r.Service = strings.ToUpper(args["service"])
	r.Version = args["version"]

	layers, ok := args["layers"]
	if !ok {
		return fmt.Errorf("GetMap request without a layers parameter")
	}
	if strings.Contains(layers, ",") {
		return fmt.Errorf("only one layer supported at a time: %s", layers)
	}
	r.Layer = Identifier{Value: layers}

	r.CRS = NativeCRS
	if crs, crsOK := args["crs"]; crsOK {
		crs = strings.ToLower(crs)
		if _, supported := WMSCRSExtents[crs]; !supported {
			return fmt.Errorf("SRS not supported [CRS]: %s (%v are supported)", args["crs"], crsKeys(WMSCRSExtents))
		}
		r.CRS = crs
	}

	rawBBox, ok := args["bbox"]
	if !ok {
		return fmt.Errorf("GetMap request without a bbox parameter")
	}
	if err := checkWMSField("bbox", rawBBox); err != nil {
		return err
	}
	bbox, err := parseBBox(rawBBox)
	if err != nil {
		return err
	}
	r.CRS, r.BBox = resolveCRS84(r.CRS, bbox)

	if t, timeOK := args["time"]; timeOK {
		ts, err := parseTemporalSubset(t)
		if err != nil {
			return err
		}
		r.Time = ts.TimePosition
	}

	if format, formatOK := args["format"]; formatOK {
		r.Format = format
	}

	if r.Width, err = parseSize("width", args, checkWMSField); err != nil {
		return err
	}
	if r.Height, err = parseSize("height", args, checkWMSField); err != nil {
		return err
	}
	return nil
}

func (r *WMSGetMap) Validate() error {
	if r.Service != "WMS" {
		return fmt.Errorf("WMS request validation error: service should be WMS")
	}
	if err := r.Layer.Validate(); err != nil {
		return fmt.Errorf("WMS request validation error: no layer specified")
	}
	if r.BBox == nil {
		return fmt.Errorf("WMS request validation error: no bounding box specified")
	}
	if err := r.BBox.Validate(); err != nil {
		return err
	}
	if !AllowedWMSFormats[r.Format] {
		return fmt.Errorf("WMS request validation error: unsupported output format %s", r.Format)
	}

	corners := []float64{
		r.BBox.LowerCorner[0], r.BBox.UpperCorner[0],
		r.BBox.LowerCorner[1], r.BBox.UpperCorner[1],
	}
	for _, v := range corners {
		if round9(v) > WebMercatorExtent || round9(v) < -WebMercatorExtent {
			return NewOGCException(
				fmt.Sprintf("minx,miny,maxx,maxy must all be between -%f and +%f", WebMercatorExtent, WebMercatorExtent),
				ExcInvalidParameterValue, "BBOX")
		}
	}
	return nil
}

// round9 rounds to 9 decimal places so the Web Mercator extent itself
// survives a float round trip through the query string.
func round9(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}

// WMSGetLegendGraphic is a request for the legend image of one layer.
type WMSGetLegendGraphic struct {
	Service string
	Version string
	Layer   Identifier
	Format  string
}

func (r *WMSGetLegendGraphic) LoadFromKV(args map[string]string) error {
	if strings.ToLower(args["request"]) != "getlegendgraphic" {
		return fmt.Errorf("not a GetLegendGraphic request: %s", args["request"])
	}
	r.Service = strings.ToUpper(args["service"])
	r.Version = args["version"]

	layer, ok := args["layer"]
	if !ok {
		return fmt.Errorf("GetLegendGraphic request without a layer parameter")
	}
	if strings.Contains(layer, ",") {
		return fmt.Errorf("only one layer supported at a time: %s", layer)
	}
	r.Layer = Identifier{Value: layer}

	if format, formatOK := args["format"]; formatOK {
		r.Format = format
	}
	return nil
}

func (r *WMSGetLegendGraphic) Validate() error {
	if r.Service != "WMS" {
		return fmt.Errorf("WMS request validation error: service should be WMS")
	}
	if err := r.Layer.Validate(); err != nil {
		return fmt.Errorf("WMS request validation error: no layer specified")
	}
	return nil
}
