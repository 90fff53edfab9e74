package utils

import (
	"encoding/xml"
	"errors"
	"strings"
	"testing"
)

func TestOGCExceptionToXML(t *testing.T) {
	exc := NewOGCException("Invalid coverage layer<1>", ExcInvalidParameterValue, "COVERAGE")
	doc := exc.ToXML()

	if !strings.Contains(doc, `exceptionCode="InvalidParameterValue"`) {
		t.Errorf("missing exception code in:\n%s", doc)
	}
	if !strings.Contains(doc, `locator="COVERAGE"`) {
		t.Errorf("missing locator in:\n%s", doc)
	}
	if !strings.Contains(doc, "Invalid coverage layer&lt;1&gt;") {
		t.Errorf("exception text not escaped in:\n%s", doc)
	}

	var report struct {
		XMLName xml.Name `xml:"ExceptionReport"`
		Text    string   `xml:"ExceptionText"`
	}
	if err := xml.Unmarshal([]byte(doc), &report); err != nil {
		t.Errorf("exception report is not well formed XML: %v", err)
		return
	}
	if report.Text != "Invalid coverage layer<1>" {
		t.Errorf("unexpected round tripped text: %q", report.Text)
	}
}

func TestDefaultException(t *testing.T) {
	exc := DefaultException()
	if exc.ExceptionText != "Internal application error." {
		t.Errorf("unexpected default text: %v", exc.ExceptionText)
	}
	if exc.ExceptionCode != ExcNoApplicableCode {
		t.Errorf("unexpected default code: %v", exc.ExceptionCode)
	}
}

func TestToOGCException(t *testing.T) {
	if ToOGCException(nil) != nil {
		t.Errorf("nil errors should stay nil")
	}

	orig := NewOGCException("boom", ExcInvalidFormat, "FORMAT")
	if ToOGCException(orig) != orig {
		t.Errorf("protocol exceptions should pass through unchanged")
	}

	wrapped := ToOGCException(errors.New("sql: connection refused"))
	if wrapped.ExceptionText != "Invalid arguments" {
		t.Errorf("internal details leaked: %v", wrapped.ExceptionText)
	}
	if wrapped.ExceptionCode != ExcNoApplicableCode {
		t.Errorf("unexpected code: %v", wrapped.ExceptionCode)
	}
}
