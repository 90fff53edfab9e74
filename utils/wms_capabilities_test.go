package utils

import (
	"encoding/xml"
	"strings"
	"testing"
)

func timeLayer(name string, useTimesList bool, pastDays int, dates []string) (*WMSCapabilities, *Coverage) {
	layer := &Layer{
		Name:               name,
		Title:              "Layer " + name,
		Dates:              dates,
		Grid:               DefaultGridCoordinates(),
		LegendWidthInches:  1.5,
		LegendHeightInches: 2.5,
		LegendDPI:          100,
	}
	coverage := NewCoverage(layer)
	conf := &ServiceConfig{
		Title:            "Test OGC Server",
		GroupTitle:       "Test Layers",
		UseTimesList:     useTimesList,
		PastDaysIncluded: pastDays,
	}
	return NewWMSCapabilities(conf, []*Coverage{coverage}), coverage
}

func TestWMSCapabilitiesWellFormed(t *testing.T) {
	caps, _ := timeLayer("layer1", false, 7, []string{"2020-01-01T00:00:00.000Z"})

	doc, err := caps.ToXML("http://localhost:8080/ows?")
	if err != nil {
		t.Errorf("failed to assemble document: %v", err)
		return
	}

	var parsed struct {
		XMLName xml.Name `xml:"WMS_Capabilities"`
		Service struct {
			Name      string `xml:"Name"`
			Title     string `xml:"Title"`
			MaxWidth  int    `xml:"MaxWidth"`
			MaxHeight int    `xml:"MaxHeight"`
		} `xml:"Service"`
	}
	if err := xml.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Errorf("document is not well formed XML: %v\n%s", err, doc)
		return
	}
	if parsed.Service.Name != "WMS" {
		t.Errorf("unexpected service name: %v", parsed.Service.Name)
	}
	if parsed.Service.Title != "Test OGC Server" {
		t.Errorf("unexpected service title: %v", parsed.Service.Title)
	}
	if parsed.Service.MaxWidth != 1024 || parsed.Service.MaxHeight != 1024 {
		t.Errorf("size limit defaults not applied: %dx%d", parsed.Service.MaxWidth, parsed.Service.MaxHeight)
	}

	if !strings.Contains(doc, "<LayerLimit>1</LayerLimit>") {
		t.Errorf("missing layer limit in document")
	}
	if !strings.Contains(doc, `<BoundingBox CRS="EPSG:3857"`) {
		t.Errorf("missing EPSG:3857 bounding box in document")
	}
	if !strings.Contains(doc, "<westBoundLongitude>-180</westBoundLongitude>") {
		t.Errorf("missing geographic bounding box in document")
	}
}

func TestWMSTimeDimensionInterval(t *testing.T) {
	dates := []string{
		"2020-01-01T00:00:00.000Z",
		"2020-01-01T03:00:00.000Z",
		"2020-01-01T06:00:30.000Z",
	}
	caps, _ := timeLayer("layer1", false, 7, dates)

	doc, err := caps.ToXML("http://localhost:8080/ows?")
	if err != nil {
		t.Errorf("failed to assemble document: %v", err)
		return
	}

	// Default is the latest timestamp landing on a round minute, not
	// the 06:00:30 one.
	if !strings.Contains(doc, `default="2020-01-01T03:00:00.000Z"`) {
		t.Errorf("unexpected default time in:\n%s", doc)
	}
	if !strings.Contains(doc, ">2020-01-01T00:00:00.000Z/2020-01-01T06:00:30.000Z/P3H</Dimension>") {
		t.Errorf("unexpected time interval in:\n%s", doc)
	}
}

func TestWMSTimeDimensionList(t *testing.T) {
	dates := []string{
		"2020-01-01T00:00:00.000Z",
		"2020-01-10T00:00:00.000Z",
		"2020-01-12T00:00:00.000Z",
		"2020-01-15T00:00:00.000Z",
	}
	caps, _ := timeLayer("layer1", true, 7, dates)

	doc, err := caps.ToXML("http://localhost:8080/ows?")
	if err != nil {
		t.Errorf("failed to assemble document: %v", err)
		return
	}

	// Only the trailing window of 7 days before the default (the 15th)
	// is listed; the 1st falls outside it.
	if strings.Contains(doc, "2020-01-01T00:00:00.000Z,") {
		t.Errorf("stale timestamp listed in:\n%s", doc)
	}
	if !strings.Contains(doc, ">2020-01-10T00:00:00.000Z,2020-01-12T00:00:00.000Z,2020-01-15T00:00:00.000Z</Dimension>") {
		t.Errorf("unexpected time list in:\n%s", doc)
	}
	if !strings.Contains(doc, `default="2020-01-15T00:00:00.000Z"`) {
		t.Errorf("unexpected default time in:\n%s", doc)
	}
}

func TestWMSNoTimeDimension(t *testing.T) {
	caps, _ := timeLayer("layer1", false, 7, nil)

	doc, err := caps.ToXML("http://localhost:8080/ows?")
	if err != nil {
		t.Errorf("failed to assemble document: %v", err)
		return
	}
	if strings.Contains(doc, "<Dimension") {
		t.Errorf("layers without dates should not carry a time dimension")
	}
}

func TestWMSLegendURL(t *testing.T) {
	caps, _ := timeLayer("layer1", false, 7, nil)

	doc, err := caps.ToXML("http://localhost:8080/ows?")
	if err != nil {
		t.Errorf("failed to assemble document: %v", err)
		return
	}

	if !strings.Contains(doc, `<LegendURL width="150" height="250">`) {
		t.Errorf("unexpected legend size in:\n%s", doc)
	}
	want := `xlink:href="http://localhost:8080/ows?SERVICE=WMS&amp;VERSION=1.3.0&amp;REQUEST=GetLegendGraphic&amp;LAYER=layer1&amp;STYLE=default&amp;FORMAT=image/png; mode=8bit"`
	if !strings.Contains(doc, want) {
		t.Errorf("unexpected legend URL in:\n%s", doc)
	}
}

type wmsParsedCapabilities struct {
	XMLName    xml.Name `xml:"WMS_Capabilities"`
	Capability struct {
		Layer struct {
			Title  string `xml:"Title"`
			Layers []struct {
				Name  string `xml:"Name"`
				Title string `xml:"Title"`
			} `xml:"Layer"`
		} `xml:"Layer"`
	} `xml:"Capability"`
}

func TestWMSCapabilitiesEmpty(t *testing.T) {
	caps := NewWMSCapabilities(&ServiceConfig{Title: "Test", GroupTitle: "Test Layers"}, nil)

	doc, err := caps.ToXML("http://localhost:8080/ows?")
	if err != nil {
		t.Errorf("failed to assemble document: %v", err)
		return
	}

	var parsed wmsParsedCapabilities
	if err := xml.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Errorf("document is not well formed XML: %v\n%s", err, doc)
		return
	}
	if parsed.Capability.Layer.Title != "Test Layers" {
		t.Errorf("unexpected group title: %v", parsed.Capability.Layer.Title)
	}
	if len(parsed.Capability.Layer.Layers) != 0 {
		t.Errorf("empty server should advertise no layers: %v", parsed.Capability.Layer.Layers)
	}
}

func TestWMSCapabilitiesMultipleLayers(t *testing.T) {
	coverages := []*Coverage{
		NewCoverage(&Layer{Name: "layer1", Title: "Layer One"}),
		NewCoverage(&Layer{Name: "layer2", Title: "Layer Two"}),
	}
	caps := NewWMSCapabilities(&ServiceConfig{Title: "Test", GroupTitle: "Test Layers"}, coverages)

	doc, err := caps.ToXML("http://localhost:8080/ows?")
	if err != nil {
		t.Errorf("failed to assemble document: %v", err)
		return
	}

	var parsed wmsParsedCapabilities
	if err := xml.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Errorf("document is not well formed XML: %v\n%s", err, doc)
		return
	}
	layers := parsed.Capability.Layer.Layers
	if len(layers) != 2 {
		t.Errorf("expected 2 layers, got %d", len(layers))
		return
	}
	if layers[0].Name != "layer1" || layers[1].Name != "layer2" {
		t.Errorf("layers out of order: %v %v", layers[0].Name, layers[1].Name)
	}
	if layers[1].Title != "Layer Two" {
		t.Errorf("unexpected layer title: %v", layers[1].Title)
	}
}

func TestWMSSkipsIncompleteLayers(t *testing.T) {
	complete := NewCoverage(&Layer{Name: "layer1", Title: "Layer One"})
	noTitle := NewCoverage(&Layer{Name: "layer2"})
	caps := NewWMSCapabilities(&ServiceConfig{Title: "Test"}, []*Coverage{complete, noTitle})

	doc, err := caps.ToXML("http://localhost:8080/ows?")
	if err != nil {
		t.Errorf("failed to assemble document: %v", err)
		return
	}
	if !strings.Contains(doc, "<Name>layer1</Name>") {
		t.Errorf("complete layer missing from document")
	}
	if strings.Contains(doc, "layer2") {
		t.Errorf("incomplete layer should be skipped")
	}
}
