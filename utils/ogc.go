package utils

import (
	"fmt"
	"log"
	"runtime"
	"strings"
	"sync"
)

// Renderer is the boundary to the pixel side of the service. Each
// method receives the raw lower-cased KV args of an already validated
// request and is solely responsible for producing the payload bytes.
// ClearCache is the memory-reclaim hook triggered after each
// payload-producing call.
type Renderer interface {
	GetMap(args map[string]string) ([]byte, error)
	GetCoverage(args map[string]string) ([]byte, error)
	GetLegendGraphic(args map[string]string) ([]byte, error)
	ClearCache() error
}

// LayerFilter selects which configured layers an OGC instance
// publishes. A nil filter publishes everything.
type LayerFilter func(*Layer) bool

// Response is the outcome of a handled request: either an XML
// document, or a binary payload with a download filename.
type Response struct {
	XML      string
	Payload  []byte
	FileName string
}

type opKey struct {
	Service   string
	Version   string
	Operation string
}

type opHandler func(o *OGC, args map[string]string) (*Response, error)

// The dispatch table. An empty Version matches any version, used for
// the operations the protocols define as version independent. WCS
// request names are matched case sensitively, WMS ones lower-cased,
// mirroring how each protocol family is exercised by real clients.
var ogcHandlers = map[opKey]opHandler{
	{"WCS", "", "GetCapabilities"}:       (*OGC).handleWCSGetCapabilities,
	{"WCS", "1.0.0", "DescribeCoverage"}: (*OGC).handleWCSDescribeCoverage,
	{"WCS", "1.0.0", "GetCoverage"}:      (*OGC).handleWCSGetCoverage,
	{"WMS", "", "getcapabilities"}:       (*OGC).handleWMSGetCapabilities,
	{"WMS", "", "getfeatureinfo"}:        (*OGC).handleWMSGetFeatureInfo,
	{"WMS", "1.3.0", "getmap"}:           (*OGC).handleWMSGetMap,
	{"WMS", "1.3.0", "getlegendgraphic"}: (*OGC).handleWMSGetLegendGraphic,
}

// reclaim is a process-wide effect, serialised across every OGC
// instance in the process.
var reclaimMu sync.Mutex

// OGC dispatches validated KV requests for one configured namespace
// across the WCS and WMS handler sets. Instances hold no per-request
// state, so one instance serves concurrent requests.
type OGC struct {
	conf            *Config
	baseURL         string
	renderer        Renderer
	coverages       []*Coverage
	wcsCapabilities *WCSCapabilities
	wmsCapabilities *WMSCapabilities
}

// NewOGC registers the configured layers that pass the filter and
// precomputes both capability documents.
func NewOGC(conf *Config, serverAddress, endpoint string, renderer Renderer, filter LayerFilter) *OGC {
	coverages := []*Coverage{}
	for i := range conf.Layers {
		if filter != nil && !filter(&conf.Layers[i]) {
			continue
		}
		coverages = append(coverages, NewCoverage(&conf.Layers[i]))
	}

	return &OGC{
		conf:            conf,
		baseURL:         serverAddress + endpoint + "?",
		renderer:        renderer,
		coverages:       coverages,
		wcsCapabilities: NewWCSCapabilities(&conf.ServiceConfig, coverages),
		wmsCapabilities: NewWMSCapabilities(&conf.ServiceConfig, coverages),
	}
}

// Coverages lists the registered coverages in configuration order.
func (o *OGC) Coverages() []*Coverage {
	return o.coverages
}

// GetCoverageFromID resolves a coverage identifier against the
// registered list.
func (o *OGC) GetCoverageFromID(identifier string) (*Coverage, error) {
	for _, coverage := range o.coverages {
		if coverage.Identifier == identifier {
			return coverage, nil
		}
	}
	return nil, NewOGCException(fmt.Sprintf("Invalid coverage %s", identifier),
		ExcInvalidParameterValue, "COVERAGE")
}

// HandleWCSKV serves one WCS KV request. Returned errors are always
// protocol exceptions.
func (o *OGC) HandleWCSKV(args map[string]string) (*Response, error) {
	return o.dispatch("WCS", args["request"], args)
}

// HandleWMSKV serves one WMS KV request.
func (o *OGC) HandleWMSKV(args map[string]string) (*Response, error) {
	return o.dispatch("WMS", strings.ToLower(args["request"]), args)
}

func (o *OGC) dispatch(service, operation string, args map[string]string) (*Response, error) {
	if handler, ok := ogcHandlers[opKey{service, "", operation}]; ok {
		return handler(o, args)
	}

	version, hasVersion := args["version"]
	if handler, ok := ogcHandlers[opKey{service, version, operation}]; ok {
		return handler(o, args)
	}

	// A known operation under the wrong version is a version error,
	// anything else is unroutable.
	for key := range ogcHandlers {
		if key.Service == service && key.Operation == operation {
			versionText := "None"
			if hasVersion {
				versionText = version
			}
			return nil, NewOGCException(fmt.Sprintf("Unsupported version: %s", versionText),
				ExcInvalidParameterValue, "VERSION")
		}
	}
	return nil, NewOGCException(fmt.Sprintf("KV Request not handled properly: %v", args),
		ExcNoApplicableCode, "")
}

func (o *OGC) handleWCSGetCapabilities(args map[string]string) (*Response, error) {
	req := &WCSGetCapabilities{}
	if err := loadAndValidate(req, args); err != nil {
		return nil, err
	}

	xmlDoc, err := o.wcsCapabilities.ToXML(o.requestBaseURL(args))
	if err != nil {
		return nil, ToOGCException(err)
	}
	return &Response{XML: xmlDoc}, nil
}

func (o *OGC) handleWCSDescribeCoverage(args map[string]string) (*Response, error) {
	req := &WCSDescribeCoverage{}
	if err := loadAndValidate(req, args); err != nil {
		return nil, err
	}

	coverages := make([]*Coverage, len(req.Identifiers))
	for i, id := range req.Identifiers {
		coverage, err := o.GetCoverageFromID(id.Value)
		if err != nil {
			return nil, ToOGCException(err)
		}
		coverages[i] = coverage
	}

	description := &CoverageDescription{Coverages: coverages}
	xmlDoc, err := description.ToXML()
	if err != nil {
		return nil, ToOGCException(err)
	}
	return &Response{XML: xmlDoc}, nil
}

func (o *OGC) handleWCSGetCoverage(args map[string]string) (*Response, error) {
	req := &WCSGetCoverage{}
	if err := loadAndValidate(req, args); err != nil {
		return nil, err
	}

	coverage, err := o.GetCoverageFromID(req.Identifier.Value)
	if err != nil {
		return nil, ToOGCException(err)
	}

	if err := o.checkGridSize(req.Width, req.Height); err != nil {
		return nil, err
	}

	payload, err := o.renderer.GetCoverage(args)
	if err != nil {
		log.Printf("Failed to get coverage from layer: %v\n", err)
		return nil, ToOGCException(err)
	}
	o.reclaim()

	return &Response{Payload: payload, FileName: identifierLeaf(coverage.Identifier) + ".tif"}, nil
}

func (o *OGC) handleWMSGetCapabilities(args map[string]string) (*Response, error) {
	req := &WMSGetCapabilities{}
	if err := loadAndValidate(req, args); err != nil {
		return nil, err
	}

	xmlDoc, err := o.wmsCapabilities.ToXML(o.requestBaseURL(args))
	if err != nil {
		return nil, ToOGCException(err)
	}
	return &Response{XML: xmlDoc}, nil
}

func (o *OGC) handleWMSGetFeatureInfo(args map[string]string) (*Response, error) {
	return nil, NewOGCException("Unsupported request", ExcOperationNotSupported, "REQUEST")
}

func (o *OGC) handleWMSGetMap(args map[string]string) (*Response, error) {
	req := &WMSGetMap{}
	if err := loadAndValidate(req, args); err != nil {
		return nil, err
	}

	coverage, err := o.GetCoverageFromID(req.Layer.Value)
	if err != nil {
		return nil, ToOGCException(err)
	}

	if err := o.checkGridSize(req.Width, req.Height); err != nil {
		return nil, err
	}

	payload, err := o.renderer.GetMap(args)
	if err != nil {
		log.Printf("Failed to get map from layer: %v\n", err)
		return nil, ToOGCException(err)
	}
	o.reclaim()

	return &Response{Payload: payload, FileName: identifierLeaf(coverage.Identifier) + ".png"}, nil
}

func (o *OGC) handleWMSGetLegendGraphic(args map[string]string) (*Response, error) {
	req := &WMSGetLegendGraphic{}
	if err := loadAndValidate(req, args); err != nil {
		return nil, err
	}

	coverage, err := o.GetCoverageFromID(req.Layer.Value)
	if err != nil {
		return nil, ToOGCException(err)
	}

	payload, err := o.renderer.GetLegendGraphic(args)
	if err != nil {
		log.Printf("Failed to get legend graphic from layer: %v\n", err)
		return nil, ToOGCException(err)
	}

	return &Response{Payload: payload, FileName: identifierLeaf(coverage.Identifier) + ".png"}, nil
}

// checkGridSize rejects degenerate and oversized requests before any
// rendering work is started.
func (o *OGC) checkGridSize(width, height int) error {
	if width == 0 {
		return NewOGCException("Grid coordinates x_size must be greater than 0",
			ExcInvalidParameterValue, "VERSION")
	}
	if height == 0 {
		return NewOGCException("Grid coordinates y_size must be greater than 0",
			ExcInvalidParameterValue, "VERSION")
	}
	if width*height > o.conf.ServiceConfig.MaxGridSize {
		return NewOGCException(
			fmt.Sprintf("Grid coordinates x_size * y_size must be less than %d", o.conf.ServiceConfig.MaxGridSize),
			ExcInvalidParameterValue, "VERSION")
	}
	return nil
}

// requestBaseURL is the URL prefix written into self-referential
// links. Clients behind a reverse proxy override it per request; the
// override never touches the shared capability documents.
func (o *OGC) requestBaseURL(args map[string]string) string {
	if baseURL, ok := args["base_url"]; ok && len(baseURL) > 0 {
		return baseURL
	}
	return o.baseURL
}

func (o *OGC) reclaim() {
	reclaimMu.Lock()
	defer reclaimMu.Unlock()
	if o.renderer != nil {
		o.renderer.ClearCache()
	}
	runtime.GC()
}

type kvRequest interface {
	LoadFromKV(args map[string]string) error
	Validate() error
}

// loadAndValidate runs the two-phase request protocol and normalises
// any failure into a protocol exception.
func loadAndValidate(req kvRequest, args map[string]string) error {
	if err := req.LoadFromKV(args); err != nil {
		log.Printf("Failed to load and validate: %v\n", err)
		return ToOGCException(err)
	}
	if err := req.Validate(); err != nil {
		log.Printf("Failed to load and validate: %v\n", err)
		return ToOGCException(err)
	}
	return nil
}

// identifierLeaf is the last dot separated component of a coverage
// identifier, used as the download file stem.
func identifierLeaf(identifier string) string {
	parts := strings.Split(identifier, ".")
	return parts[len(parts)-1]
}
