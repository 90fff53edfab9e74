package utils

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

const wmsCapabilitiesTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<WMS_Capabilities
xmlns="http://www.opengis.net/wms"
xmlns:xlink="http://www.w3.org/1999/xlink"
xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
xsi:schemaLocation="http://www.opengis.net/wms http://schemas.opengis.net/wms/1.3.0/capabilities_1_3_0.xsd"
version="1.3.0">
  <Service>
    <Name>WMS</Name>
    <Title>{{.ServiceTitle}}</Title>
{{- if .ServiceAbstract}}
    <Abstract>{{.ServiceAbstract}}</Abstract>
{{- end}}
    <OnlineResource xlink:href="{{.BaseURL}}"/>
    <AccessConstraints>{{.AccessConstraints}}</AccessConstraints>
    <LayerLimit>1</LayerLimit>
    <MaxWidth>{{.MaxWidth}}</MaxWidth>
    <MaxHeight>{{.MaxHeight}}</MaxHeight>
  </Service>
  <Capability>
    <Request>
      <GetCapabilities>
        <Format>text/xml</Format>
        <DCPType>
          <HTTP>
            <Get>
              <OnlineResource xlink:href="{{.BaseURL}}"/>
            </Get>
          </HTTP>
        </DCPType>
      </GetCapabilities>
      <GetMap>
        <Format>image/png</Format>
        <DCPType>
          <HTTP>
            <Get>
              <OnlineResource xlink:href="{{.BaseURL}}"/>
            </Get>
          </HTTP>
        </DCPType>
      </GetMap>
    </Request>
    <Exception>
      <Format>application/vnd.ogc.se_xml</Format>
    </Exception>
    <Layer>
      <Title>{{.GroupTitle}}</Title>
{{- range .CRSBounds}}
      <CRS>{{.CRS}}</CRS>
{{- end}}
      <EX_GeographicBoundingBox>
        <westBoundLongitude>-180</westBoundLongitude>
        <eastBoundLongitude>180</eastBoundLongitude>
        <southBoundLatitude>-90</southBoundLatitude>
        <northBoundLatitude>90</northBoundLatitude>
      </EX_GeographicBoundingBox>
{{- range .CRSBounds}}
      <BoundingBox CRS="{{.CRS}}" minx="{{.MinX}}" miny="{{.MinY}}" maxx="{{.MaxX}}" maxy="{{.MaxY}}"/>
{{- end}}
{{- range .Layers}}
      <Layer queryable="0" opaque="0" cascaded="1">
        <Name>{{.Identifier}}</Name>
        <Title>{{.Title}}</Title>
{{- if .Abstract}}
        <Abstract>{{.Abstract}}</Abstract>
{{- end}}
{{- range $.CRSBounds}}
        <CRS>{{.CRS}}</CRS>
{{- end}}
        <EX_GeographicBoundingBox>
          <westBoundLongitude>-180</westBoundLongitude>
          <eastBoundLongitude>180</eastBoundLongitude>
          <southBoundLatitude>-90</southBoundLatitude>
          <northBoundLatitude>90</northBoundLatitude>
        </EX_GeographicBoundingBox>
{{- range $.CRSBounds}}
        <BoundingBox CRS="{{.CRS}}" minx="{{.MinX}}" miny="{{.MinY}}" maxx="{{.MaxX}}" maxy="{{.MaxY}}"/>
{{- end}}
{{- if .HasTime}}
        <Dimension name="TIME" units="ISO8601" default="{{.DefaultTime}}">{{.TimesAvailable}}</Dimension>
{{- end}}
        <Style>
          <Name>{{.Identifier}}</Name>
          <Title>{{.Title}}</Title>
          <LegendURL width="{{.LegendWidth}}" height="{{.LegendHeight}}">
            <Format>image/png</Format>
            <OnlineResource xlink:type="simple" xlink:href="{{.LegendHref}}"/>
          </LegendURL>
        </Style>
      </Layer>
{{- end}}
    </Layer>
  </Capability>
</WMS_Capabilities>
`

var wmsCapabilitiesTpl = template.Must(template.New("wms_capabilities").Parse(wmsCapabilitiesTemplate))

type wmsCRSBounds struct {
	CRS  string
	MinX string
	MinY string
	MaxX string
	MaxY string
}

type wmsLayerView struct {
	Identifier     string
	Title          string
	Abstract       string
	HasTime        bool
	DefaultTime    string
	TimesAvailable string
	LegendHref     string
	LegendWidth    int
	LegendHeight   int
}

// WMSCapabilities assembles the WMS 1.3.0 GetCapabilities document
// for a fixed coverage list. As with the WCS document, the
// self-referential URL is threaded per call so the shared document
// state never mutates under concurrent requests.
type WMSCapabilities struct {
	ServiceTitle      string
	ServiceAbstract   string
	GroupTitle        string
	AccessConstraints string
	MaxWidth          int
	MaxHeight         int
	UseTimesList      bool
	PastDaysIncluded  int
	Coverages         []*Coverage
}

func NewWMSCapabilities(conf *ServiceConfig, coverages []*Coverage) *WMSCapabilities {
	caps := &WMSCapabilities{
		ServiceTitle:      conf.Title,
		ServiceAbstract:   conf.Abstract,
		GroupTitle:        conf.GroupTitle,
		AccessConstraints: conf.AccessConstraints,
		MaxWidth:          conf.MaxWidth,
		MaxHeight:         conf.MaxHeight,
		UseTimesList:      conf.UseTimesList,
		PastDaysIncluded:  conf.PastDaysIncluded,
		Coverages:         coverages,
	}
	if caps.MaxWidth <= 0 {
		caps.MaxWidth = 1024
	}
	if caps.MaxHeight <= 0 {
		caps.MaxHeight = 1024
	}
	return caps
}

func (c *WMSCapabilities) ToXML(baseURL string) (string, error) {
	layers := make([]*wmsLayerView, 0, len(c.Coverages))
	for _, cov := range c.Coverages {
		if !cov.hasRequiredFields() {
			continue
		}

		view := &wmsLayerView{
			Identifier: cov.Identifier,
			Title:      cov.Title,
			Abstract:   cov.Abstract,
			LegendHref: legendGraphicURL(baseURL, cov.Identifier),
		}
		if cov.Layer != nil {
			view.LegendWidth = cov.Layer.LegendWidth()
			view.LegendHeight = cov.Layer.LegendHeight()
		}

		if dates := cov.Dates(); len(dates) > 0 {
			view.HasTime = true
			view.DefaultTime, view.TimesAvailable = c.timeDimension(dates)
		}

		layers = append(layers, view)
	}

	data := struct {
		*WMSCapabilities
		BaseURL   string
		CRSBounds []wmsCRSBounds
		Layers    []*wmsLayerView
	}{c, baseURL, wmsBoundsList(), layers}

	var buf bytes.Buffer
	if err := wmsCapabilitiesTpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("Error executing template: %v", err)
	}
	return buf.String(), nil
}

// timeDimension computes the content of the TIME Dimension element
// from a sorted timestamp list: the default timestamp plus either a
// compact min/max/P3H interval or an explicit comma list bounded by
// the configured trailing-days window.
func (c *WMSCapabilities) timeDimension(dates []string) (defaultTime, timesAvailable string) {
	// Default to the latest round-minute timestamp if there is
	// one, otherwise to the first timestamp.
	defaultTime = dates[0]
	defaultIdx := 0
	for i := len(dates) - 1; i >= 0; i-- {
		t, err := ParseISOTimestamp(dates[i])
		if err == nil && t.Second() == 0 {
			defaultTime = dates[i]
			defaultIdx = i
			break
		}
	}

	if !c.UseTimesList {
		timesAvailable = fmt.Sprintf("%s/%s/P3H", dates[0], dates[len(dates)-1])
		return
	}

	defTS, err := ParseISOTimestamp(dates[defaultIdx])
	if err != nil {
		timesAvailable = strings.Join(dates, ",")
		return
	}

	first := 0
	for i := len(dates) - 1; i >= 0; i-- {
		t, err := ParseISOTimestamp(dates[i])
		if err != nil {
			continue
		}
		if int(defTS.Sub(t).Hours()/24) >= c.PastDaysIncluded {
			first = i + 1
			break
		}
	}
	timesAvailable = strings.Join(dates[first:], ",")
	return
}

func legendGraphicURL(baseURL, identifier string) string {
	if !strings.HasSuffix(baseURL, "?") {
		baseURL += "?"
	}
	return baseURL + "SERVICE=WMS&amp;VERSION=1.3.0&amp;REQUEST=GetLegendGraphic&amp;LAYER=" +
		identifier + "&amp;STYLE=default&amp;FORMAT=image/png; mode=8bit"
}

func wmsBoundsList() []wmsCRSBounds {
	bounds := make([]wmsCRSBounds, 0, len(WMSCRSExtents))
	for _, crs := range crsKeys(WMSCRSExtents) {
		ext := WMSCRSExtents[crs]
		bounds = append(bounds, wmsCRSBounds{
			CRS:  strings.ToUpper(crs),
			MinX: formatBound(ext.MinX),
			MinY: formatBound(ext.MinY),
			MaxX: formatBound(ext.MaxX),
			MaxY: formatBound(ext.MaxY),
		})
	}
	return bounds
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
