package metrics

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestMetricsInfoToJSON(t *testing.T) {
	collector := NewMetricsCollector(nil)
	info := collector.Info
	info.ReqTime = "2026-08-30T00:00:00.000Z"
	info.ReqDuration = 42 * time.Millisecond
	info.URL.RawURL = "http://localhost:8080/ows?service=WCS&request=GetCapabilities"
	info.RemoteAddr = "10.0.0.7:51234"
	info.HTTPStatus = 200
	info.OGC.Service = "WCS"
	info.OGC.Operation = "GetCapabilities"

	out, err := info.ToJSON()
	if err != nil {
		t.Errorf("failed to serialise metrics: %v", err)
		return
	}

	var record map[string]interface{}
	if err := json.Unmarshal([]byte(out), &record); err != nil {
		t.Errorf("metrics record is not valid JSON: %v", err)
		return
	}

	if record["remote_host"] != "10.0.0.7" || record["remote_port"] != "51234" {
		t.Errorf("remote address not split: %v %v", record["remote_host"], record["remote_port"])
	}

	url, ok := record["url"].(map[string]interface{})
	if !ok {
		t.Errorf("missing url breakdown: %v", out)
		return
	}
	query, ok := url["query"].(map[string]interface{})
	if !ok || query["service"] != "WCS" {
		t.Errorf("query not normalised: %v", url["query"])
	}

	ogc, ok := record["ogc"].(map[string]interface{})
	if !ok || ogc["operation"] != "GetCapabilities" {
		t.Errorf("missing ogc record: %v", record["ogc"])
	}

	// every field of the record is populated by the request handler;
	// nothing in the schema is dead weight
	for key := range record {
		switch key {
		case "req_time", "req_duration", "url", "remote_addr",
			"remote_host", "remote_port", "http_status", "ogc":
		default:
			t.Errorf("unexpected metrics field: %s", key)
		}
	}

	if strings.Contains(out, `\u0026`) {
		t.Errorf("HTML escaping should be off: %v", out)
	}
}

func TestMetricsCollectorNilLogger(t *testing.T) {
	collector := NewMetricsCollector(nil)
	collector.Log()
}
