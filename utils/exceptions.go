package utils

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Exception codes recognised by the OGC ExceptionReport schema.
const (
	ExcNoApplicableCode      = "NoApplicableCode"
	ExcInvalidFormat         = "InvalidFormat"
	ExcCoverageNotDefined    = "CoverageNotDefined"
	ExcMissingParameterValue = "MissingParameterValue"
	ExcInvalidParameterValue = "InvalidParameterValue"
	ExcOperationNotSupported = "OperationNotSupported"
)

// OGCException is the single error type that crosses the protocol
// boundary. Any WCS or WMS request that cannot be served maps to one
// of these before leaving the dispatcher.
type OGCException struct {
	ExceptionText string
	ExceptionCode string
	Locator       string
}

func (e *OGCException) Error() string {
	if len(e.Locator) > 0 {
		return fmt.Sprintf("%s (%s, locator %s)", e.ExceptionText, e.ExceptionCode, e.Locator)
	}
	return fmt.Sprintf("%s (%s)", e.ExceptionText, e.ExceptionCode)
}

// NewOGCException builds a protocol exception with an explicit code
// and locator.
func NewOGCException(text, code, locator string) *OGCException {
	return &OGCException{ExceptionText: text, ExceptionCode: code, Locator: locator}
}

// DefaultException is the document served when an unexpected error
// escapes the protocol layer. It deliberately carries no detail.
func DefaultException() *OGCException {
	return &OGCException{
		ExceptionText: "Internal application error.",
		ExceptionCode: ExcNoApplicableCode,
	}
}

// ToOGCException normalises an arbitrary error into a protocol
// exception. Errors that already are protocol exceptions pass through
// unchanged, anything else becomes a generic document so internal
// details are not disclosed to clients.
func ToOGCException(err error) *OGCException {
	if err == nil {
		return nil
	}
	if e, ok := err.(*OGCException); ok {
		return e
	}
	return &OGCException{
		ExceptionText: "Invalid arguments",
		ExceptionCode: ExcNoApplicableCode,
	}
}

// ToXML serialises the exception into the ows ExceptionReport format.
func (e *OGCException) ToXML() string {
	var text bytes.Buffer
	xml.EscapeText(&text, []byte(e.ExceptionText))

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<ExceptionReport version="1.0.0"
            xmlns="http://www.opengis.net/ows/1.1"
            xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
            xsi:schemaLocation="http://www.opengis.net/ows/1.1 owsExceptionReport.xsd">
    <Exception exceptionCode="%s" locator="%s"/>
    <ExceptionText>%s</ExceptionText>
</ExceptionReport>
`, e.ExceptionCode, e.Locator, text.String())
}
