package main

/* ows is a web server implementing the WCS and WMS protocols to
   serve geospatial data. This server is intended to be consumed
   directly by users and exposes the available layers through the
   GetCapabilities.xml document. Configuration of the server is
   specified in per dataset config.json or config.yaml files where
   features such as layers or time axes can be defined.
   The actual rendering of coverages, maps and legends is delegated
   over gRPC to a pool of render worker nodes. */

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/geoserve/ows/metrics"
	"github.com/geoserve/ows/render"
	"github.com/geoserve/ows/utils"

	_ "net/http/pprof"

	reuseport "github.com/kavu/go_reuseport"
	"golang.org/x/net/context"
)

// Global variable to hold the values specified
// on the config.json documents.
var configMap map[string]*utils.Config

// Per dataset namespace protocol handlers and capability document
// caches, rebuilt whenever the configs are reloaded.
var ogcMap map[string]*utils.OGC
var docCacheMap map[string]*utils.DocCache

var (
	port            = flag.Int("p", 8080, "Server listening port.")
	serverConfigDir = flag.String("conf_dir", utils.EtcDir, "Server config directory.")
	serverLogDir    = flag.String("log_dir", "", "Server log directory.")
	serverAddress   = flag.String("server_address", "", "Advertised server address used in capability documents.")
	validateConfig  = flag.Bool("check_conf", false, "Validate server config files.")
	dumpConfig      = flag.Bool("dump_conf", false, "Dump server config files.")
	verbose         = flag.Bool("v", false, "Verbose mode for more server outputs.")
)

var (
	Error *log.Logger
	Info  *log.Logger
)

var metricsLogger metrics.Logger

// init initialises the Error logger, loads the config files and
// builds the per namespace protocol handlers.
// This is the first function to be called in main.
func init() {
	rand.Seed(time.Now().UnixNano())

	Error = log.New(os.Stderr, "OWS: ", log.Ldate|log.Ltime|log.Lshortfile)
	Info = log.New(os.Stdout, "OWS: ", log.Ldate|log.Ltime|log.Lshortfile)

	flag.Parse()

	utils.EtcDir = *serverConfigDir

	confMap, err := utils.LoadAllConfigFiles(utils.EtcDir, *verbose)
	if err != nil {
		Error.Printf("Error in loading config files: %v\n", err)
		panic(err)
	}

	if *validateConfig {
		os.Exit(0)
	}

	if *dumpConfig {
		configJson, err := utils.DumpConfig(confMap)
		if err != nil {
			Error.Printf("Error in dumping configs: %v\n", err)
		} else {
			log.Print(configJson)
		}
		os.Exit(0)
	}

	configMap = confMap
	buildServices()

	utils.WatchConfig(Info, Error, &configMap, *verbose, buildServices)

	if len(*serverLogDir) > 0 {
		if *serverLogDir == "-" {
			metricsLogger = metrics.NewStdoutLogger()
		} else {
			maxLogFileSize := int64(0)
			if val, ok := os.LookupEnv("OWS_MAX_LOG_FILE_SIZE"); ok {
				valInt, e := strconv.ParseInt(val, 10, 64)
				if e == nil {
					maxLogFileSize = valInt
				} else {
					Error.Printf("invalid OWS_MAX_LOG_FILE_SIZE: %v", e)
				}
			}

			maxLogFiles := -1
			if val, ok := os.LookupEnv("OWS_MAX_LOG_FILES"); ok {
				valInt, e := strconv.ParseInt(val, 10, 32)
				if e == nil {
					maxLogFiles = int(valInt)
				} else {
					Error.Printf("invalid OWS_MAX_LOG_FILES: %v", e)
				}
			}

			metricsLogger = metrics.NewFileLogger(*serverLogDir, maxLogFileSize, maxLogFiles, *verbose)
		}
	}
}

// buildServices derives the protocol handler and the capability
// document cache for each dataset namespace from configMap. Called
// once at startup and again on every config reload.
func buildServices() {
	newOgcMap := make(map[string]*utils.OGC)
	newCacheMap := make(map[string]*utils.DocCache)

	for namespace, config := range configMap {
		endpoint := config.ServiceConfig.Endpoint
		if len(endpoint) == 0 {
			endpoint = "/ows"
			if namespace != "." {
				endpoint += "/" + namespace
			}
		}

		maxRecvMsgSize := 0
		for i := range config.Layers {
			if config.Layers[i].MaxGrpcRecvMsgSize > maxRecvMsgSize {
				maxRecvMsgSize = config.Layers[i].MaxGrpcRecvMsgSize
			}
		}
		renderer := render.NewGRPCLayer(context.Background(), config.ServiceConfig.WorkerNodes, maxRecvMsgSize, *verbose)

		var filter utils.LayerFilter
		if len(config.ServiceConfig.LayersEnabled) > 0 {
			enabled := make(map[string]bool)
			for _, name := range config.ServiceConfig.LayersEnabled {
				enabled[name] = true
			}
			filter = func(layer *utils.Layer) bool { return enabled[layer.Name] }
		}

		newOgcMap[namespace] = utils.NewOGC(config, advertisedAddress(config), endpoint, renderer, filter)
		newCacheMap[namespace] = utils.NewDocCache(config.ServiceConfig.MemcacheURI, *verbose)
	}

	ogcMap = newOgcMap
	docCacheMap = newCacheMap
}

// advertisedAddress is the address written into capability documents
// when a request does not carry one. The command line flag wins over
// the per dataset config.
func advertisedAddress(config *utils.Config) string {
	if len(*serverAddress) > 0 {
		return *serverAddress
	}
	if len(config.ServiceConfig.OWSHostname) > 0 {
		return "http://" + config.ServiceConfig.OWSHostname
	}
	return fmt.Sprintf("http://localhost:%d", *port)
}

// serveHome writes the example landing page shown when the endpoint
// is visited without any query arguments.
func serveHome(w http.ResponseWriter, ogc *utils.OGC) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, homePage(ogc))
}

func homePage(ogc *utils.OGC) string {
	testLayer := "testLayerName"
	if coverages := ogc.Coverages(); len(coverages) > 0 {
		testLayer = coverages[0].Identifier
	}
	return fmt.Sprintf(`<h2> OGC Server API </h2>
    <p>This is the OGC API endpoint. The links below exercise each supported operation.</p>

    <ul>
        <li> WCS: Open Geospatial Consortium (OGC) Web Coverage Service (WCS) <i>(v1.0.0)</i>
        <ul>
            <li><a href="?SERVICE=WCS&REQUEST=GetCapabilities&VERSION=1.0.0">WCS GetCapabilities (XML)</a></li>
            <li><a href="?SERVICE=WCS&REQUEST=DescribeCoverage&VERSION=1.0.0&COVERAGE=%[1]s">WCS DescribeCoverage Example (XML)</a></li>
            <li><a href="?SERVICE=WCS&VERSION=1.0.0&REQUEST=GetCoverage&FORMAT=GeoTIFF&COVERAGE=%[1]s&BBOX=-132.9,23.6,-53.6,53.7&CRS=EPSG:4326&RESPONSE_CRS=EPSG:4326&WIDTH=346&HEIGHT=131">WCS GetCoverage Example (GeoTIFF)</a></li>
        </ul>
        </li>
        <li> WMS: Open Geospatial Consortium (OGC) Web Map Service (WMS) <i>(v1.3.0)</i>
        <ul>
            <li><a href="?SERVICE=WMS&REQUEST=GetCapabilities&VERSION=1.3.0">WMS GetCapabilities (XML)</a></li>
            <li><a href="?SERVICE=WMS&REQUEST=GetMap&VERSION=1.3.0&LAYERS=%[1]s&STYLES=&FORMAT=image%%2Fpng&TRANSPARENT=true&HEIGHT=256&WIDTH=256&CRS=EPSG%%3A3857&BBOX=-10018754.17,2504688.54,-7514065.62,5009377.08">WMS GetMap Example (PNG)</a></li>
            <li><a href="?SERVICE=WMS&VERSION=1.3.0&REQUEST=GetLegendGraphic&LAYER=%[1]s&STYLE=default&FORMAT=image/png">WMS GetLegend Example (PNG)</a></li>
        </ul>
        </li>
    </ul>
`, testLayer)
}

// The WCS standard wants the SERVICE argument on every request but
// some clients omit it. Operation names are unambiguous enough to
// recover the service for everything but GetCapabilities.
var reqService = map[string]string{
	"getfeatureinfo":   "WMS",
	"getmap":           "WMS",
	"getlegendgraphic": "WMS",
	"describecoverage": "WCS",
	"getcoverage":      "WCS",
}

// generalHandler handles every request received on /ows
func generalHandler(namespace string, ogc *utils.OGC, w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate, max-age=0")
	if *verbose {
		Info.Printf("%s\n", r.URL.String())
	}

	metricsCollector := metrics.NewMetricsCollector(metricsLogger)
	defer metricsCollector.Log()

	// a panic below must still answer with the default exception
	// document rather than dropping the connection
	defer func() {
		if p := recover(); p != nil {
			writeOGCError(w, fmt.Errorf("panic: %v", p), metricsCollector)
		}
	}()

	t0 := time.Now()
	metricsCollector.Info.ReqTime = t0.Format(utils.ISOFormat)
	defer func() { metricsCollector.Info.ReqDuration = time.Since(t0) }()

	reqUrl, e := url.QueryUnescape(r.URL.String())
	if e == nil {
		metricsCollector.Info.URL.RawURL = reqUrl
	} else {
		metricsCollector.Info.URL.RawURL = r.URL.String()
	}

	metricsCollector.Info.RemoteAddr = utils.ParseRemoteAddr(r)
	metricsCollector.Info.HTTPStatus = 200

	if r.Method != "GET" {
		metricsCollector.Info.HTTPStatus = 405
		http.Error(w, "Only GET requests are supported", 405)
		return
	}

	query, err := utils.ParseQuery(r.URL.RawQuery)
	if err != nil {
		metricsCollector.Info.HTTPStatus = 400
		http.Error(w, fmt.Sprintf("Failed to parse query: %v", err), 400)
		return
	}

	if len(query) == 0 {
		serveHome(w, ogc)
		return
	}

	args := utils.NormaliseKV(query)

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	args["base_url"] = scheme + "://" + r.Host + r.URL.Path + "?"

	if _, hasService := args["service"]; !hasService {
		if service, found := reqService[strings.ToLower(args["request"])]; found {
			args["service"] = service
		}
	}

	service := strings.ToUpper(args["service"])
	metricsCollector.Info.OGC = &metrics.OGCInfo{Service: service, Operation: args["request"]}
	for _, key := range []string{"coverage", "layers", "layer"} {
		if layer, found := args[key]; found {
			metricsCollector.Info.OGC.Layer = layer
			break
		}
	}

	var resp *utils.Response
	switch service {
	case "WCS":
		resp, err = handleCached(namespace, ogc.HandleWCSKV, args)
	case "WMS":
		resp, err = handleCached(namespace, ogc.HandleWMSKV, args)
	default:
		err = utils.NewOGCException("No response for this combination of arguments.", utils.ExcNoApplicableCode, "")
	}

	if err != nil {
		writeOGCError(w, err, metricsCollector)
		return
	}

	writeResponse(w, resp)
}

// handleCached memoises GetCapabilities documents in the namespace's
// document cache. Every other operation goes straight through.
func handleCached(namespace string, handle func(map[string]string) (*utils.Response, error), args map[string]string) (*utils.Response, error) {
	cache := docCacheMap[namespace]
	if cache == nil || strings.ToLower(args["request"]) != "getcapabilities" {
		return handle(args)
	}

	key := cache.Key(namespace, args["service"], args["version"], args["base_url"])
	if doc, found := cache.Get(key); found {
		return &utils.Response{XML: doc}, nil
	}

	resp, err := handle(args)
	if err == nil && len(resp.XML) > 0 {
		cache.Put(key, resp.XML)
	}
	return resp, err
}

func writeResponse(w http.ResponseWriter, resp *utils.Response) {
	if len(resp.FileName) > 0 {
		contentType := "image/png"
		disposition := "inline"
		if strings.HasSuffix(resp.FileName, ".tif") {
			contentType = "image/geotiff"
			disposition = "attachment"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, resp.FileName))
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(resp.Payload)))
		w.Write(resp.Payload)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprint(w, resp.XML)
}

// writeOGCError renders err as an ows:ExceptionReport document.
// Protocol level errors are the client's fault and map to 400,
// anything else is ours and maps to 500.
func writeOGCError(w http.ResponseWriter, err error, metricsCollector *metrics.MetricsCollector) {
	status := 500
	doc := utils.DefaultException()

	if exc, ok := err.(*utils.OGCException); ok {
		status = 400
		doc = exc
		Error.Printf("OGC exception: %v\n", err)
	} else {
		Error.Printf("internal error: %v\n", err)
	}

	metricsCollector.Info.HTTPStatus = status
	if metricsCollector.Info.OGC != nil {
		metricsCollector.Info.OGC.ExceptionCode = doc.ExceptionCode
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)
	fmt.Fprint(w, doc.ToXML())
}

func owsHandler(w http.ResponseWriter, r *http.Request) {
	namespace := "."
	if strings.HasPrefix(r.URL.Path, "/ows/") && len(r.URL.Path) > len("/ows/") {
		namespace = r.URL.Path[len("/ows/"):]
	}
	ogc, ok := ogcMap[namespace]
	if !ok {
		Info.Printf("Invalid dataset namespace: %v for url: %v\n", namespace, r.URL.Path)
		http.Error(w, fmt.Sprintf("Invalid dataset namespace: %v\n", namespace), 404)
		return
	}
	generalHandler(namespace, ogc, w, r)
}

func main() {
	http.HandleFunc("/", owsHandler)
	http.HandleFunc("/ows", owsHandler)
	http.HandleFunc("/ows/", owsHandler)

	listener, err := reuseport.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", *port))
	if err != nil {
		Error.Fatalf("failed to listen on port %d: %v", *port, err)
	}

	Info.Printf("OWS is ready")
	log.Fatal(http.Serve(listener, nil))
}
