package utils

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	yaml "gopkg.in/yaml.v2"
)

var EtcDir = "."
var DataDir = "."

// string used to format Go ISO times
const ISOFormat = "2006-01-02T15:04:05.000Z"

var isoLayouts = []string{
	ISOFormat,
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	"2006-01-02",
}

// ParseISOTimestamp parses the timestamp formats clients are known to
// send in the TIME parameter.
func ParseISOTimestamp(raw string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", raw)
}

// ServiceConfig carries the instance-wide settings of one OGC
// endpoint.
type ServiceConfig struct {
	OWSHostname       string   `json:"ows_hostname" yaml:"ows_hostname"`
	Endpoint          string   `json:"endpoint" yaml:"endpoint"`
	Title             string   `json:"title" yaml:"title"`
	Abstract          string   `json:"abstract" yaml:"abstract"`
	GroupTitle        string   `json:"group_title" yaml:"group_title"`
	AccessConstraints string   `json:"access_constraints" yaml:"access_constraints"`
	MaxWidth          int      `json:"max_width" yaml:"max_width"`
	MaxHeight         int      `json:"max_height" yaml:"max_height"`
	MaxGridSize       int      `json:"max_grid_size" yaml:"max_grid_size"`
	UseTimesList      bool     `json:"use_times_list" yaml:"use_times_list"`
	PastDaysIncluded  int      `json:"past_days_included" yaml:"past_days_included"`
	MemcacheURI       string   `json:"memcache_uri" yaml:"memcache_uri"`
	WorkerNodes       []string `json:"worker_nodes" yaml:"worker_nodes"`

	// LayersEnabled limits the published layers to an explicit
	// subset. Empty means every configured layer is published.
	LayersEnabled []string `json:"layers_enabled" yaml:"layers_enabled"`
}

// Layer contains all the details a coverage/map layer needs to be
// published. The pixel side of the layer lives behind the Renderer
// boundary; only metadata is kept here.
type Layer struct {
	Name          string          `json:"name" yaml:"name"`
	Title         string          `json:"title" yaml:"title"`
	Abstract      string          `json:"abstract" yaml:"abstract"`
	DataSource    string          `json:"data_source" yaml:"data_source"`
	StartISODate  string          `json:"start_isodate" yaml:"start_isodate"`
	EndISODate    string          `json:"end_isodate" yaml:"end_isodate"`
	StepDays      int             `json:"step_days" yaml:"step_days"`
	StepHours     int             `json:"step_hours" yaml:"step_hours"`
	StepMinutes   int             `json:"step_minutes" yaml:"step_minutes"`
	TimeGen       string          `json:"time_generator" yaml:"time_generator"`
	Dates         []string        `json:"dates" yaml:"dates"`
	AllTimesValid bool            `json:"all_times_valid" yaml:"all_times_valid"`
	DatesDSN      string          `json:"dates_dsn" yaml:"dates_dsn"`
	DatesTable    string          `json:"dates_table" yaml:"dates_table"`
	Grid          GridCoordinates `json:"grid" yaml:"grid"`

	LegendWidthInches  float64 `json:"legend_width_inches" yaml:"legend_width_inches"`
	LegendHeightInches float64 `json:"legend_height_inches" yaml:"legend_height_inches"`
	LegendDPI          float64 `json:"legend_dpi" yaml:"legend_dpi"`

	MaxGrpcRecvMsgSize int `json:"max_grpc_recv_msg_size" yaml:"max_grpc_recv_msg_size"`
}

// LegendWidth is the legend graphic width in pixels.
func (l *Layer) LegendWidth() int {
	return int(l.LegendWidthInches * l.LegendDPI)
}

// LegendHeight is the legend graphic height in pixels.
func (l *Layer) LegendHeight() int {
	return int(l.LegendHeightInches * l.LegendDPI)
}

// Config is the struct representing the configuration of one OGC
// server instance: the service settings plus the layers it serves.
type Config struct {
	ServiceConfig ServiceConfig `json:"service_config" yaml:"service_config"`
	Layers        []Layer       `json:"layers" yaml:"layers"`
}

const DefaultMaxGridSize = 1024 * 1024
const DefaultRecvMsgSize = 10 * 1024 * 1024
const defaultPastDaysIncluded = 7
const defaultLegendWidthInches = 1.5
const defaultLegendHeightInches = 2.5
const defaultLegendDPI = 100

func GenerateDatesRegular(start, end time.Time, stepMins time.Duration) []string {
	dates := []string{}
	for start.Before(end) {
		dates = append(dates, start.Format(ISOFormat))
		start = start.Add(stepMins)
	}
	return dates
}

func GenerateMonthlyDates(start, end time.Time, stepMins time.Duration) []string {
	dates := []string{}
	for start.Before(end) {
		dates = append(dates, time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC).Format(ISOFormat))
		start = start.AddDate(0, 1, 0)
	}
	return dates
}

func GenerateYearlyDates(start, end time.Time, stepMins time.Duration) []string {
	dates := []string{}
	for start.Before(end) {
		dates = append(dates, time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC).Format(ISOFormat))
		start = start.AddDate(1, 0, 0)
	}
	return dates
}

// GenerateDates dispatches to the date generator named in the layer
// config. Unknown generator names yield no dates rather than a crash.
func GenerateDates(name string, start, end time.Time, stepMins time.Duration) []string {
	dateGen := map[string]func(time.Time, time.Time, time.Duration) []string{
		"regular": GenerateDatesRegular,
		"monthly": GenerateMonthlyDates,
		"yearly":  GenerateYearlyDates,
	}

	if gen, ok := dateGen[name]; ok {
		return gen(start, end, stepMins)
	}
	return []string{}
}

// LoadAllConfigFiles walks rootDir looking for config.json or
// config.yaml files. Each containing directory becomes a namespace
// served at its own endpoint.
func LoadAllConfigFiles(rootDir string, verbose bool) (map[string]*Config, error) {
	configMap := make(map[string]*Config)
	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && (info.Name() == "config.json" || info.Name() == "config.yaml") {
			relPath, _ := filepath.Rel(rootDir, filepath.Dir(path))
			if verbose {
				log.Printf("Loading config file: %s under namespace: %s\n", path, relPath)
			}

			config := &Config{}
			e := config.LoadConfigFile(path)
			if e != nil {
				return e
			}

			configMap[relPath] = config
		}
		return nil
	})

	if err == nil && len(configMap) == 0 {
		err = fmt.Errorf("No config file found")
	}

	return configMap, err
}

// LoadConfigFile unmarshals one config document, JSON or YAML
// depending on the file extension, and fills in derived layer fields:
// generated dates, legend sizing defaults and grpc limits.
func (config *Config) LoadConfigFile(configFile string) error {
	*config = Config{}
	cfg, err := ioutil.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("Error while reading config file: %s. Error: %v", configFile, err)
	}

	if strings.HasSuffix(configFile, ".yaml") || strings.HasSuffix(configFile, ".yml") {
		err = yaml.Unmarshal(cfg, config)
	} else {
		err = json.Unmarshal(cfg, config)
	}
	if err != nil {
		return fmt.Errorf("Error at parsing config document: %s. Error: %v", configFile, err)
	}

	if config.ServiceConfig.MaxGridSize <= 0 {
		config.ServiceConfig.MaxGridSize = DefaultMaxGridSize
	}
	if config.ServiceConfig.PastDaysIncluded <= 0 {
		config.ServiceConfig.PastDaysIncluded = defaultPastDaysIncluded
	}

	for i, layer := range config.Layers {
		if len(layer.Dates) == 0 && len(layer.TimeGen) > 0 {
			if layer.TimeGen == "db" {
				dates, err := LoadDatesFromDB(layer.DatesDSN, layer.DatesTable, layer.Name)
				if err != nil {
					return fmt.Errorf("Error loading dates for layer %s: %v", layer.Name, err)
				}
				config.Layers[i].Dates = dates
			} else {
				start, _ := time.Parse(ISOFormat, layer.StartISODate)
				end, _ := time.Parse(ISOFormat, layer.EndISODate)
				step := time.Minute * time.Duration(60*24*layer.StepDays+60*layer.StepHours+layer.StepMinutes)
				config.Layers[i].Dates = GenerateDates(layer.TimeGen, start, end, step)
			}
		}

		if layer.Grid.XSize == 0 || layer.Grid.YSize == 0 {
			config.Layers[i].Grid = DefaultGridCoordinates()
		}

		if layer.LegendWidthInches <= 0 {
			config.Layers[i].LegendWidthInches = defaultLegendWidthInches
		}
		if layer.LegendHeightInches <= 0 {
			config.Layers[i].LegendHeightInches = defaultLegendHeightInches
		}
		if layer.LegendDPI <= 0 {
			config.Layers[i].LegendDPI = defaultLegendDPI
		}

		if layer.MaxGrpcRecvMsgSize <= 0 {
			config.Layers[i].MaxGrpcRecvMsgSize = DefaultRecvMsgSize
		}
	}
	return nil
}

// DumpConfig renders the loaded config tree as indented JSON for the
// -dump_conf flag.
func DumpConfig(configs map[string]*Config) (string, error) {
	configJSON, err := json.MarshalIndent(configs, "", "    ")
	if err != nil {
		return "", err
	}
	return string(configJSON), nil
}

// WatchConfig reloads every config file on SIGHUP. onReload, if not
// nil, runs after the map has been swapped so callers can rebuild
// anything derived from the configs.
func WatchConfig(infoLog, errLog *log.Logger, configMap *map[string]*Config, verbose bool, onReload func()) {
	// Catch SIGHUP to automatically reload config
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for {
			<-sighup
			infoLog.Println("Caught SIGHUP, reloading config...")
			confMap, err := LoadAllConfigFiles(EtcDir, verbose)
			if err != nil {
				errLog.Printf("Error in loading config files: %v\n", err)
				continue
			}

			for k := range *configMap {
				delete(*configMap, k)
			}

			for k := range confMap {
				(*configMap)[k] = confMap[k]
			}

			if onReload != nil {
				onReload()
			}
		}
	}()
}
