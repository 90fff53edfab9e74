package utils

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testConfigJSON = `{
    "service_config": {
        "title": "Test OGC Server",
        "max_grid_size": 4096
    },
    "layers": [
        {
            "name": "layer1",
            "title": "Layer One",
            "start_isodate": "2020-01-01T00:00:00.000Z",
            "end_isodate": "2020-01-03T00:00:00.000Z",
            "step_days": 1,
            "time_generator": "regular"
        }
    ]
}`

const testConfigYAML = `service_config:
  title: Test YAML Server
layers:
  - name: layer2
    title: Layer Two
    all_times_valid: true
    grid:
      x_size: 100
      y_size: 50
      geotransform: [10, 0.5, 0, 20, 0, 0.2]
`

func writeTestConfig(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir, err := ioutil.TempDir("", "ows_config")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := writeTestConfig(t, dir, "config.json", testConfigJSON)

	config := &Config{}
	if err := config.LoadConfigFile(path); err != nil {
		t.Errorf("failed to load config: %v", err)
		return
	}

	if config.ServiceConfig.MaxGridSize != 4096 {
		t.Errorf("unexpected max grid size: %d", config.ServiceConfig.MaxGridSize)
	}
	if config.ServiceConfig.PastDaysIncluded != defaultPastDaysIncluded {
		t.Errorf("past days default not applied: %d", config.ServiceConfig.PastDaysIncluded)
	}

	if len(config.Layers) != 1 {
		t.Errorf("expected 1 layer, got %d", len(config.Layers))
		return
	}
	layer := config.Layers[0]

	if len(layer.Dates) != 2 {
		t.Errorf("expected 2 generated dates, got %v", layer.Dates)
		return
	}
	if layer.Dates[0] != "2020-01-01T00:00:00.000Z" || layer.Dates[1] != "2020-01-02T00:00:00.000Z" {
		t.Errorf("unexpected generated dates: %v", layer.Dates)
	}

	if layer.Grid.XSize == 0 {
		t.Errorf("default grid not applied")
	}
	if layer.LegendWidth() != 150 || layer.LegendHeight() != 250 {
		t.Errorf("legend defaults not applied: %dx%d", layer.LegendWidth(), layer.LegendHeight())
	}
	if layer.MaxGrpcRecvMsgSize != DefaultRecvMsgSize {
		t.Errorf("grpc recv size default not applied: %d", layer.MaxGrpcRecvMsgSize)
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	dir, err := ioutil.TempDir("", "ows_config")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := writeTestConfig(t, dir, "config.yaml", testConfigYAML)

	config := &Config{}
	if err := config.LoadConfigFile(path); err != nil {
		t.Errorf("failed to load config: %v", err)
		return
	}

	if config.ServiceConfig.Title != "Test YAML Server" {
		t.Errorf("unexpected title: %v", config.ServiceConfig.Title)
	}
	if len(config.Layers) != 1 {
		t.Errorf("expected 1 layer, got %d", len(config.Layers))
		return
	}
	layer := config.Layers[0]
	if !layer.AllTimesValid {
		t.Errorf("all_times_valid not parsed")
	}
	if layer.Grid.XSize != 100 || layer.Grid.Geotransform[1] != 0.5 {
		t.Errorf("grid not parsed: %v", layer.Grid)
	}
}

func TestLoadAllConfigFiles(t *testing.T) {
	dir, err := ioutil.TempDir("", "ows_config")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	writeTestConfig(t, dir, "config.json", testConfigJSON)
	subDir := filepath.Join(dir, "sub_dataset")
	if err := os.Mkdir(subDir, 0755); err != nil {
		t.Fatalf("failed to create sub dir: %v", err)
	}
	writeTestConfig(t, subDir, "config.yaml", testConfigYAML)

	configMap, err := LoadAllConfigFiles(dir, false)
	if err != nil {
		t.Errorf("failed to load config tree: %v", err)
		return
	}

	if len(configMap) != 2 {
		t.Errorf("expected 2 namespaces, got %d", len(configMap))
		return
	}
	if _, ok := configMap["."]; !ok {
		t.Errorf("root namespace missing: %v", configMap)
	}
	if _, ok := configMap["sub_dataset"]; !ok {
		t.Errorf("sub_dataset namespace missing: %v", configMap)
	}
}

func TestLoadAllConfigFilesEmpty(t *testing.T) {
	dir, err := ioutil.TempDir("", "ows_config")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	if _, err := LoadAllConfigFiles(dir, false); err == nil {
		t.Errorf("an empty config tree should be an error")
	}
}

func TestGenerateDates(t *testing.T) {
	start, _ := time.Parse(ISOFormat, "2020-01-01T00:00:00.000Z")
	end, _ := time.Parse(ISOFormat, "2020-01-02T00:00:00.000Z")

	dates := GenerateDatesRegular(start, end, 6*time.Hour)
	if len(dates) != 4 {
		t.Errorf("expected 4 dates, got %v", dates)
	}

	end, _ = time.Parse(ISOFormat, "2020-04-01T00:00:00.000Z")
	dates = GenerateDates("monthly", start, end, 0)
	if len(dates) != 3 {
		t.Errorf("expected 3 monthly dates, got %v", dates)
	}

	end, _ = time.Parse(ISOFormat, "2023-01-01T00:00:00.000Z")
	dates = GenerateDates("yearly", start, end, 0)
	if len(dates) != 3 {
		t.Errorf("expected 3 yearly dates, got %v", dates)
	}

	dates = GenerateDates("no_such_generator", start, end, 0)
	if len(dates) != 0 {
		t.Errorf("unknown generators should yield no dates, got %v", dates)
	}
}

func TestParseISOTimestamp(t *testing.T) {
	for _, raw := range []string{
		"2020-06-01T12:30:00.000Z",
		"2020-06-01T12:30:00Z",
		"2020-06-01",
	} {
		if _, err := ParseISOTimestamp(raw); err != nil {
			t.Errorf("failed to parse %q: %v", raw, err)
		}
	}

	if _, err := ParseISOTimestamp("01/06/2020"); err != nil {
		ts, _ := ParseISOTimestamp("2020-06-01T12:30:00Z")
		if ts.Format(ISOFormat) != "2020-06-01T12:30:00.000Z" {
			t.Errorf("unexpected reformatted timestamp: %v", ts.Format(ISOFormat))
		}
	} else {
		t.Errorf("non ISO timestamp should be rejected")
	}
}
