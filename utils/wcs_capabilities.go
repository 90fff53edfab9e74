package utils

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"text/template"
)

// Coverage binds a published layer to the metadata advertised in the
// capability documents and to a grid snapshot taken at registration
// time. Coverages are created once at service construction and looked
// up by identifier per request.
type Coverage struct {
	Layer      *Layer
	Identifier string
	Title      string
	Abstract   string
	Grid       GridCoordinates
}

func NewCoverage(layer *Layer) *Coverage {
	return &Coverage{
		Layer:      layer,
		Identifier: layer.Name,
		Title:      layer.Title,
		Abstract:   layer.Abstract,
		Grid:       layer.Grid,
	}
}

// LLC is the lower-left grid corner in lat/lon.
func (c *Coverage) LLC() Point {
	return c.Grid.LLC()
}

// URC is the upper-right grid corner in lat/lon.
func (c *Coverage) URC() Point {
	return c.Grid.URC()
}

func (c *Coverage) Dates() []string {
	if c.Layer == nil {
		return nil
	}
	return c.Layer.Dates
}

func (c *Coverage) AllTimesValid() bool {
	return c.Layer != nil && c.Layer.AllTimesValid
}

// hasRequiredFields reports whether the coverage carries the fields
// the capability schemas mark required. Incomplete coverages are
// skipped with a logged note rather than crashing document assembly.
func (c *Coverage) hasRequiredFields() bool {
	if len(c.Identifier) == 0 {
		log.Printf("Invalid layer. Missing name.\n")
		return false
	}
	if len(c.Title) == 0 {
		log.Printf("Invalid layer. Missing label.\n")
		return false
	}
	return true
}

const wcsCapabilitiesTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<wcs:WCS_Capabilities
xmlns:wcs="http://www.opengis.net/wcs"
xmlns:xlink="http://www.w3.org/1999/xlink"
xmlns:ogc="http://www.opengis.net/ogc"
xmlns:ows="http://www.opengis.net/ows/1.1"
xmlns:gml="http://www.opengis.net/gml"
xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
xsi:schemaLocation="http://www.opengis.net/wcs http://schemas.opengis.net/wcs/1.0.0/wcsCapabilities.xsd"
version="1.0.0">
  <wcs:Service>
    <wcs:name>{{.ServiceTitle}}</wcs:name>
    <wcs:label>{{.ServiceTitle}}</wcs:label>
{{- if .ServiceAbstract}}
    <wcs:description>{{.ServiceAbstract}}</wcs:description>
{{- end}}
    <wcs:fees>UNAVAILABLE</wcs:fees>
    <wcs:accessConstraints>{{.AccessConstraints}}</wcs:accessConstraints>
  </wcs:Service>
  <wcs:Capability>
    <wcs:Request>
      <wcs:GetCapabilities>
        <wcs:DCPType>
          <wcs:HTTP>
            <wcs:Get>
              <wcs:OnlineResource xlink:href="{{.BaseURL}}"/>
            </wcs:Get>
          </wcs:HTTP>
        </wcs:DCPType>
      </wcs:GetCapabilities>
      <wcs:DescribeCoverage>
        <wcs:DCPType>
          <wcs:HTTP>
            <wcs:Get>
              <wcs:OnlineResource xlink:href="{{.BaseURL}}"/>
            </wcs:Get>
          </wcs:HTTP>
        </wcs:DCPType>
      </wcs:DescribeCoverage>
      <wcs:GetCoverage>
        <wcs:DCPType>
          <wcs:HTTP>
            <wcs:Get>
              <wcs:OnlineResource xlink:href="{{.BaseURL}}"/>
            </wcs:Get>
          </wcs:HTTP>
        </wcs:DCPType>
      </wcs:GetCoverage>
    </wcs:Request>
    <wcs:Exception>
      <wcs:Format>application/vnd.ogc.se_xml</wcs:Format>
    </wcs:Exception>
  </wcs:Capability>
  <wcs:ContentMetadata>
{{- range .Coverages}}
    <wcs:CoverageOfferingBrief>
{{- if .Abstract}}
      <wcs:description>{{.Abstract}}</wcs:description>
{{- end}}
      <wcs:name>{{.Identifier}}</wcs:name>
      <wcs:label>{{.Title}}</wcs:label>
      <wcs:lonLatEnvelope srsName="urn:ogc:def:crs:OGC:1.3:CRS84">
        <gml:pos>{{.LLC.Lon}} {{.LLC.Lat}}</gml:pos>
        <gml:pos>{{.URC.Lon}} {{.URC.Lat}}</gml:pos>
      </wcs:lonLatEnvelope>
    </wcs:CoverageOfferingBrief>
{{- end}}
  </wcs:ContentMetadata>
</wcs:WCS_Capabilities>
`

const wcsDescribeCoverageTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<wcs:CoverageDescription xmlns:wcs="http://www.opengis.net/wcs"
xmlns:xlink="http://www.w3.org/1999/xlink"
xmlns:ogc="http://www.opengis.net/ogc"
xmlns:ows="http://www.opengis.net/ows/1.1"
xmlns:gml="http://www.opengis.net/gml"
xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
xsi:schemaLocation="http://www.opengis.net/wcs http://schemas.opengis.net/wcs/1.0.0/describeCoverage.xsd"
version="1.0.0">
{{- $crsList := .CRSList}}
{{- $nativeCRS := .NativeCRS}}
{{- range .Coverages}}
  <wcs:CoverageOffering>
{{- if .Identifier}}
    <wcs:name>{{.Identifier}}</wcs:name>
{{- end}}
{{- if .Title}}
    <wcs:label>{{.Title}}</wcs:label>
{{- end}}
{{- if .Abstract}}
    <wcs:description>{{.Abstract}}</wcs:description>
{{- end}}
    <wcs:lonLatEnvelope srsName="urn:ogc:def:crs:OGC:1.3:CRS84">
      <gml:pos>{{.LLC.Lon}} {{.LLC.Lat}}</gml:pos>
      <gml:pos>{{.URC.Lon}} {{.URC.Lat}}</gml:pos>
    </wcs:lonLatEnvelope>
    <wcs:domainSet>
      <wcs:spatialDomain>
        <gml:Envelope srsName="{{$nativeCRS}}">
          <gml:pos>{{.LLC.Lon}} {{.LLC.Lat}}</gml:pos>
          <gml:pos>{{.URC.Lon}} {{.URC.Lat}}</gml:pos>
        </gml:Envelope>
        <gml:RectifiedGrid dimension="2" srsName="{{$nativeCRS}}">
          <gml:limits>
            <gml:GridEnvelope>
              <gml:low>0 0</gml:low>
              <gml:high>{{.Grid.XSize}} {{.Grid.YSize}}</gml:high>
            </gml:GridEnvelope>
          </gml:limits>
          <gml:axisName>x</gml:axisName>
          <gml:axisName>y</gml:axisName>
          <gml:origin>
            <gml:pos>{{index .Grid.Geotransform 0}} {{index .Grid.Geotransform 3}}</gml:pos>
          </gml:origin>
          <gml:offsetVector>{{index .Grid.Geotransform 1}} {{index .Grid.Geotransform 2}}</gml:offsetVector>
          <gml:offsetVector>{{index .Grid.Geotransform 4}} {{index .Grid.Geotransform 5}}</gml:offsetVector>
        </gml:RectifiedGrid>
      </wcs:spatialDomain>
{{- if .AllTimesValid}}
      <wcs:temporalDomain>
        <gml:timePeriod>
          <gml:beginPosition>0001-01-01T00:00:00.000Z</gml:beginPosition>
          <gml:endPosition>9999-12-31T23:59:59.999Z</gml:endPosition>
        </gml:timePeriod>
      </wcs:temporalDomain>
{{- else if .Dates}}
      <wcs:temporalDomain>
{{- range .Dates}}
        <gml:timePosition>{{.}}</gml:timePosition>
{{- end}}
      </wcs:temporalDomain>
{{- end}}
    </wcs:domainSet>
    <wcs:rangeSet>
      <wcs:RangeSet>
        <wcs:name>{{.Identifier}}</wcs:name>
        <wcs:label>{{.Title}}</wcs:label>
        <wcs:axisDescription>
          <wcs:AxisDescription>
            <wcs:name>Band</wcs:name>
            <wcs:label>Band</wcs:label>
            <wcs:values>
              <wcs:singleValue>1</wcs:singleValue>
            </wcs:values>
          </wcs:AxisDescription>
        </wcs:axisDescription>
      </wcs:RangeSet>
    </wcs:rangeSet>
    <wcs:supportedCRSs>
{{- range $crsList}}
      <wcs:requestResponseCRSs>{{.}}</wcs:requestResponseCRSs>
{{- end}}
    </wcs:supportedCRSs>
    <wcs:supportedFormats nativeFormat="GeoTIFF">
      <wcs:formats>GeoTIFF</wcs:formats>
    </wcs:supportedFormats>
  </wcs:CoverageOffering>
{{- end}}
</wcs:CoverageDescription>
`

var wcsCapabilitiesTpl = template.Must(template.New("wcs_capabilities").Parse(wcsCapabilitiesTemplate))
var wcsDescribeCoverageTpl = template.Must(template.New("wcs_describe_coverage").Parse(wcsDescribeCoverageTemplate))

// WCSCapabilities assembles the WCS 1.0.0 GetCapabilities document
// for a fixed coverage list. The document never mutates after
// construction; the self-referential URL is supplied per call.
type WCSCapabilities struct {
	ServiceTitle      string
	ServiceAbstract   string
	AccessConstraints string
	Coverages         []*Coverage
}

func NewWCSCapabilities(conf *ServiceConfig, coverages []*Coverage) *WCSCapabilities {
	return &WCSCapabilities{
		ServiceTitle:      conf.Title,
		ServiceAbstract:   conf.Abstract,
		AccessConstraints: conf.AccessConstraints,
		Coverages:         coverages,
	}
}

func (c *WCSCapabilities) ToXML(baseURL string) (string, error) {
	data := struct {
		*WCSCapabilities
		BaseURL string
	}{c, baseURL}

	complete := make([]*Coverage, 0, len(c.Coverages))
	for _, cov := range c.Coverages {
		if cov.hasRequiredFields() {
			complete = append(complete, cov)
		}
	}
	data.WCSCapabilities = &WCSCapabilities{
		ServiceTitle:      c.ServiceTitle,
		ServiceAbstract:   c.ServiceAbstract,
		AccessConstraints: c.AccessConstraints,
		Coverages:         complete,
	}

	var buf bytes.Buffer
	if err := wcsCapabilitiesTpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("Error executing template: %v", err)
	}
	return buf.String(), nil
}

// CoverageDescription assembles the WCS 1.0.0 DescribeCoverage
// response for the coverages resolved from one request, in request
// order.
type CoverageDescription struct {
	Coverages []*Coverage
}

func (d *CoverageDescription) ToXML() (string, error) {
	crsList := make([]string, 0, len(WCSCRSExtents))
	for _, crs := range crsKeys(WCSCRSExtents) {
		crsList = append(crsList, strings.ToUpper(crs))
	}

	data := struct {
		Coverages []*Coverage
		CRSList   []string
		NativeCRS string
	}{d.Coverages, crsList, strings.ToUpper(NativeCRS)}

	var buf bytes.Buffer
	if err := wcsDescribeCoverageTpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("Error executing template: %v", err)
	}
	return buf.String(), nil
}
