// Package printing renders warehouse documents such as packing slips to PDF
// with headless Chrome.
package printing

import (
	"context"
	"time"
)

// PaperSize names a supported sheet size
type PaperSize string

const (
	PaperSizeLetter PaperSize = "LETTER"
	PaperSizeA4     PaperSize = "A4"
)

// sheet sizes in inches, portrait
var sheets = map[PaperSize][2]float64{
	PaperSizeLetter: {8.5, 11},
	PaperSizeA4:     {210 / 25.4, 297 / 25.4},
}

func (p PaperSize) IsValid() bool {
	_, ok := sheets[p]
	return ok
}

// Dimensions returns portrait width and height in inches. Unknown sizes
// fall back to Letter.
func (p PaperSize) Dimensions() (width, height float64) {
	s, ok := sheets[p]
	if !ok {
		s = sheets[PaperSizeLetter]
	}
	return s[0], s[1]
}

// Margins in inches
type Margins struct {
	Top, Right, Bottom, Left float64
}

func DefaultMargins() Margins {
	return Margins{Top: 0.5, Right: 0.5, Bottom: 0.5, Left: 0.5}
}

// RenderRequest is one HTML document to print. HTML may be a fragment; it
// is wrapped in a minimal document when it has no doctype.
type RenderRequest struct {
	HTML       string
	Title      string
	PaperSize  PaperSize
	Landscape  bool
	Margins    Margins
	FooterHTML string        // Chrome footer template, may use pageNumber/totalPages
	Timeout    time.Duration // zero uses the renderer default
}

type RenderResult struct {
	PDFData        []byte
	RenderDuration time.Duration
}

// PDFRenderer turns HTML into PDF bytes
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

const (
	ErrCodeRenderTimeout    = "RENDER_TIMEOUT"
	ErrCodeRenderFailed     = "RENDER_FAILED"
	ErrCodeInvalidHTML      = "INVALID_HTML"
	ErrCodeInvalidPaperSize = "INVALID_PAPER_SIZE"
)

// RenderError carries one of the ErrCode* values
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

func (e *RenderError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *RenderError) Unwrap() error { return e.Cause }
