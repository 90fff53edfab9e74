package utils

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// WCSRegexpMap maps WCS request parameters to regular expressions used
// as a pre-filter when parsing.
// --- These regexp do not avoid every case of
// --- invalid code but filter most of the malformed
// --- cases. Typed parsing of the surviving values
// --- does the rest of the validation.
var WCSRegexpMap = map[string]string{"service": `^(?i)WCS$`,
	"request":  `^GetCapabilities$|^DescribeCoverage$|^GetCoverage$`,
	"coverage": `^[A-Za-z.:0-9,\s_-]+$`,
	"crs":      `^(?i)(?:[A-Z]+):(?:[0-9]+)$`,
	"bbox":     `^[-+]?[0-9]*\.?[0-9]*([eE][-+]?[0-9]+)?(,\s*[-+]?[0-9]*\.?[0-9]*([eE][-+]?[0-9]+)?){3}$`,
	"width":    `^[0-9]+$`,
	"height":   `^[0-9]+$`}

func CompileWCSRegexMap() map[string]*regexp.Regexp {
	REMap := make(map[string]*regexp.Regexp)
	for key, re := range WCSRegexpMap {
		REMap[key] = regexp.MustCompile(re)
	}

	return REMap
}

var wcsREMap = CompileWCSRegexMap()

func checkWCSField(key, value string) error {
	if re, ok := wcsREMap[key]; ok && !re.MatchString(value) {
		return fmt.Errorf("malformed %s value: %s", key, value)
	}
	return nil
}

// WCSGetCapabilities is a request to retrieve the WCS Capabilities
// document.
type WCSGetCapabilities struct {
	Service string
}

func (r *WCSGetCapabilities) LoadFromKV(args map[string]string) error {
	if args["request"] != "GetCapabilities" {
		return fmt.Errorf("not a GetCapabilities request: %s", args["request"])
	}
	r.Service = strings.ToUpper(args["service"])
	return nil
}

func (r *WCSGetCapabilities) Validate() error {
	if r.Service != "WCS" {
		return fmt.Errorf("WCS request validation error: service should be WCS")
	}
	return nil
}

// WCSDescribeCoverage is a request for the full description of one
// or more coverages. Unlike the map operations, multiple comma
// separated identifiers are accepted here; each is resolved
// independently downstream.
type WCSDescribeCoverage struct {
	Service     string
	Version     string
	Identifiers []Identifier
}

func (r *WCSDescribeCoverage) LoadFromKV(args map[string]string) error {
	if args["request"] != "DescribeCoverage" {
		return fmt.Errorf("not a DescribeCoverage request: %s", args["request"])
	}
	r.Service = strings.ToUpper(args["service"])
	r.Version = args["version"]

	coverage, ok := args["coverage"]
	if !ok {
		return fmt.Errorf("DescribeCoverage request without a coverage parameter")
	}
	if err := checkWCSField("coverage", coverage); err != nil {
		return err
	}

	r.Identifiers = nil
	for _, id := range strings.Split(coverage, ",") {
		r.Identifiers = append(r.Identifiers, Identifier{Value: strings.TrimSpace(id)})
	}
	return nil
}

func (r *WCSDescribeCoverage) Validate() error {
	if r.Service != "WCS" {
		return fmt.Errorf("WCS request validation error: service should be WCS")
	}
	if !strings.HasPrefix(r.Version, "1.0.0") {
		return fmt.Errorf("WCS request validation error: version should be 1.0.0")
	}
	for i := range r.Identifiers {
		if err := r.Identifiers[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// WCSGetCoverage is a request to retrieve a spatial (and optionally
// temporal) subset of one coverage.
type WCSGetCoverage struct {
	Service    string
	Version    string
	Identifier Identifier
	CRS        string
	BBox       *BoundingBox
	Temporal   *TemporalSubset
	Format     OutputFormat
	Width      int
	Height     int
}

func (r *WCSGetCoverage) LoadFromKV(args map[string]string) error {
	if args["request"] != "GetCoverage" {
		return fmt.Errorf("not a GetCoverage request: %s", args["request"])
	}
	r.Service = strings.ToUpper(args["service"])
	r.Version = args["version"]

	coverage, ok := args["coverage"]
	if !ok {
		return fmt.Errorf("GetCoverage request without a coverage parameter")
	}
	r.Identifier = Identifier{Value: coverage}

	r.CRS = NativeCRS
	for _, key := range []string{"request_crs", "crs"} {
		if crs, crsOK := args[key]; crsOK {
			crs = strings.ToLower(crs)
			if _, supported := WCSCRSExtents[crs]; !supported {
				return fmt.Errorf("SRS not supported [CRS]: %s (%v are supported)", args[key], crsKeys(WCSCRSExtents))
			}
			r.CRS = crs
		}
	}

	rawBBox, ok := args["bbox"]
	if !ok {
		return fmt.Errorf("GetCoverage request without a bbox parameter")
	}
	bbox, err := parseBBox(rawBBox)
	if err != nil {
		return err
	}
	r.CRS, r.BBox = resolveCRS84(r.CRS, bbox)

	r.Format = OutputFormat{Value: args["format"]}

	if t, timeOK := args["time"]; timeOK {
		ts, err := parseTemporalSubset(t)
		if err != nil {
			return err
		}
		r.Temporal = ts
	}

	if r.Width, err = parseSize("width", args, checkWCSField); err != nil {
		return err
	}
	if r.Height, err = parseSize("height", args, checkWCSField); err != nil {
		return err
	}
	return nil
}

func (r *WCSGetCoverage) Validate() error {
	if r.Service != "WCS" {
		return fmt.Errorf("WCS request validation error: service should be WCS")
	}
	if err := r.Identifier.Validate(); err != nil {
		return fmt.Errorf("WCS request validation error: no coverage specified")
	}
	if r.BBox == nil {
		return fmt.Errorf("WCS request validation error: no bounding box specified")
	}
	if err := r.BBox.Validate(); err != nil {
		return err
	}
	if err := r.Format.Validate(); err != nil {
		return fmt.Errorf("WCS request validation error: output format")
	}

	// Historic bound, looser than strict geographic ranges to
	// tolerate wrap-around; kept to preserve accepted-request
	// behaviour.
	lons := []float64{r.BBox.LowerCorner[0], r.BBox.UpperCorner[0]}
	lats := []float64{r.BBox.LowerCorner[1], r.BBox.UpperCorner[1]}
	for _, l := range lons {
		if l < -361.0 || l > 361.0 {
			return wcsBBoxRangeError()
		}
	}
	for _, l := range lats {
		if l < -91.0 || l > 91.0 {
			return wcsBBoxRangeError()
		}
	}
	return nil
}

func wcsBBoxRangeError() error {
	return NewOGCException(
		"longitude must be between -180 and +180, latitude must be between -90 and +90",
		ExcInvalidParameterValue, "BBOX")
}

// parseTemporalSubset parses the TIME parameter. The general WCS
// temporal subset model allows lists and intervals; this server
// supports exactly one instant per request and rejects the rest with
// a protocol exception so clients get an actionable message.
func parseTemporalSubset(raw string) (*TemporalSubset, error) {
	if strings.Contains(raw, ",") {
		return nil, NewOGCException(
			"Only one time value per request is supported. Please specify a single timestamp (e.g. TIME=2016-01-31T00:00:00.000Z)",
			ExcInvalidParameterValue, "TIME")
	}
	ts, err := ParseISOTimestamp(raw)
	if err != nil {
		return nil, err
	}
	return &TemporalSubset{TimePosition: ts.Format(ISOFormat)}, nil
}

func parseSize(key string, args map[string]string, check func(key, value string) error) (int, error) {
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("request without a %s parameter", key)
	}
	if err := check(key, raw); err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %s: %v", key, raw, err)
	}
	return v, nil
}

// crsKeys returns the CRS identifiers of an extent set in a stable
// order. Used both in error messages and in capability documents.
func crsKeys(extents map[string]CRSExtent) []string {
	keys := make([]string, 0, len(extents))
	for k := range extents {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
