package utils

import (
	"encoding/xml"
	"strings"
	"testing"
)

func wcsTestCoverages() []*Coverage {
	layer1 := &Layer{
		Name:  "layer1",
		Title: "Layer One",
		Dates: []string{"2020-01-01T00:00:00.000Z", "2020-01-02T00:00:00.000Z"},
		Grid:  DefaultGridCoordinates(),
	}
	layer2 := &Layer{
		Name:          "layer2",
		Title:         "Layer Two",
		AllTimesValid: true,
		Grid: GridCoordinates{
			XSize:        100,
			YSize:        50,
			Geotransform: [6]float64{10, 0.5, 0, 20, 0, 0.2},
		},
	}
	return []*Coverage{NewCoverage(layer1), NewCoverage(layer2)}
}

func TestWCSCapabilitiesWellFormed(t *testing.T) {
	conf := &ServiceConfig{Title: "Test OGC Server", AccessConstraints: "none"}
	caps := NewWCSCapabilities(conf, wcsTestCoverages())

	doc, err := caps.ToXML("http://localhost:8080/ows?")
	if err != nil {
		t.Errorf("failed to assemble document: %v", err)
		return
	}

	var parsed struct {
		XMLName xml.Name `xml:"WCS_Capabilities"`
		Service struct {
			Name string `xml:"name"`
			Fees string `xml:"fees"`
		} `xml:"Service"`
		Content struct {
			Briefs []struct {
				Name string `xml:"name"`
			} `xml:"CoverageOfferingBrief"`
		} `xml:"ContentMetadata"`
	}
	if err := xml.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Errorf("document is not well formed XML: %v\n%s", err, doc)
		return
	}

	if parsed.Service.Fees != "UNAVAILABLE" {
		t.Errorf("unexpected fees: %v", parsed.Service.Fees)
	}
	if len(parsed.Content.Briefs) != 2 {
		t.Errorf("expected 2 coverage briefs, got %d", len(parsed.Content.Briefs))
		return
	}
	if parsed.Content.Briefs[0].Name != "layer1" || parsed.Content.Briefs[1].Name != "layer2" {
		t.Errorf("unexpected brief names: %v", parsed.Content.Briefs)
	}

	if !strings.Contains(doc, `xlink:href="http://localhost:8080/ows?"`) {
		t.Errorf("missing base URL in document")
	}
	if !strings.Contains(doc, "<wcs:Format>application/vnd.ogc.se_xml</wcs:Format>") {
		t.Errorf("missing exception format in document")
	}
	if !strings.Contains(doc, `srsName="urn:ogc:def:crs:OGC:1.3:CRS84"`) {
		t.Errorf("missing lonLatEnvelope srsName in document")
	}
}

func TestWCSCapabilitiesEmpty(t *testing.T) {
	conf := &ServiceConfig{Title: "Test OGC Server"}
	caps := NewWCSCapabilities(conf, nil)

	doc, err := caps.ToXML("http://localhost:8080/ows?")
	if err != nil {
		t.Errorf("failed to assemble document: %v", err)
		return
	}
	var parsed struct {
		XMLName xml.Name `xml:"WCS_Capabilities"`
	}
	if err := xml.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Errorf("empty document is not well formed XML: %v\n%s", err, doc)
	}
	if strings.Contains(doc, "CoverageOfferingBrief") {
		t.Errorf("empty document should not carry coverage briefs")
	}
}

func TestDescribeCoverageDocument(t *testing.T) {
	description := &CoverageDescription{Coverages: wcsTestCoverages()}

	doc, err := description.ToXML()
	if err != nil {
		t.Errorf("failed to assemble document: %v", err)
		return
	}

	var parsed struct {
		XMLName   xml.Name `xml:"CoverageDescription"`
		Offerings []struct {
			Name string `xml:"name"`
		} `xml:"CoverageOffering"`
	}
	if err := xml.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Errorf("document is not well formed XML: %v\n%s", err, doc)
		return
	}
	if len(parsed.Offerings) != 2 {
		t.Errorf("expected 2 coverage offerings, got %d", len(parsed.Offerings))
	}

	// Grid facts of layer2 flow into the RectifiedGrid block.
	if !strings.Contains(doc, "<gml:high>100 50</gml:high>") {
		t.Errorf("missing grid envelope in:\n%s", doc)
	}
	if !strings.Contains(doc, "<gml:pos>10 20</gml:pos>") {
		t.Errorf("missing grid origin in:\n%s", doc)
	}
	if !strings.Contains(doc, "<gml:offsetVector>0.5 0</gml:offsetVector>") {
		t.Errorf("missing x offset vector in:\n%s", doc)
	}

	// layer1 has explicit dates, layer2 accepts any time.
	if !strings.Contains(doc, "<gml:timePosition>2020-01-01T00:00:00.000Z</gml:timePosition>") {
		t.Errorf("missing time position in:\n%s", doc)
	}
	if !strings.Contains(doc, "<gml:beginPosition>0001-01-01T00:00:00.000Z</gml:beginPosition>") {
		t.Errorf("missing open time period in:\n%s", doc)
	}

	if !strings.Contains(doc, "<wcs:requestResponseCRSs>CRS:84</wcs:requestResponseCRSs>") ||
		!strings.Contains(doc, "<wcs:requestResponseCRSs>EPSG:4326</wcs:requestResponseCRSs>") {
		t.Errorf("missing supported CRSs in:\n%s", doc)
	}
	if !strings.Contains(doc, `<wcs:supportedFormats nativeFormat="GeoTIFF">`) {
		t.Errorf("missing supported formats in:\n%s", doc)
	}
}
