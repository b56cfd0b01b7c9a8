// Package pdf reads, rewrites and saves documents: the native text layer,
// page rasterization for OCR, region acquisition, the per-page
// redact-and-insert pipeline, and the job that runs it over a file.
package pdf

import "fmt"

// PDFErrorCode classifies document failures.
type PDFErrorCode string

const (
	ErrInvalidInput PDFErrorCode = "INVALID_INPUT"
	ErrOpenFailed   PDFErrorCode = "OPEN_FAILED"
	ErrTextLayer    PDFErrorCode = "TEXT_LAYER"
	ErrRasterize    PDFErrorCode = "RASTERIZE_FAILED"
	ErrOCR          PDFErrorCode = "OCR_FAILED"
	ErrRedaction    PDFErrorCode = "REDACTION_FAILED"
	ErrInsertion    PDFErrorCode = "INSERTION_FAILED"
	ErrSaveFailed   PDFErrorCode = "SAVE_FAILED"
	ErrCancelled    PDFErrorCode = "CANCELLED"
)

// PDFError is a document failure. Page is 1-based; zero means the whole
// document.
type PDFError struct {
	Code    PDFErrorCode `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Page    int          `json:"page,omitempty"`
	Cause   error        `json:"-"`
}

func (e *PDFError) Error() string {
	msg := e.Message
	if e.Page > 0 {
		msg = fmt.Sprintf("page %d: %s", e.Page, msg)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause of the error
func (e *PDFError) Unwrap() error {
	return e.Cause
}

// Fatal reports whether the error ends the job. Page-local failures do not.
func (e *PDFError) Fatal() bool {
	switch e.Code {
	case ErrInvalidInput, ErrOpenFailed, ErrSaveFailed, ErrCancelled:
		return true
	}
	return false
}

// NewPDFError creates a new PDFError with the given code, message, and optional cause
func NewPDFError(code PDFErrorCode, message string, cause error) *PDFError {
	return &PDFError{Code: code, Message: message, Cause: cause}
}

// NewPDFErrorWithDetails creates a new PDFError with details
func NewPDFErrorWithDetails(code PDFErrorCode, message, details string, cause error) *PDFError {
	return &PDFError{Code: code, Message: message, Details: details, Cause: cause}
}

// NewPDFErrorWithPage creates a new PDFError with page information
func NewPDFErrorWithPage(code PDFErrorCode, message string, page int, cause error) *PDFError {
	return &PDFError{Code: code, Message: message, Page: page, Cause: cause}
}

// JobPhase is a stage of a translation job.
type JobPhase string

const (
	PhaseIdle        JobPhase = "idle"
	PhaseLoading     JobPhase = "loading"
	PhaseAcquiring   JobPhase = "acquiring"
	PhaseTranslating JobPhase = "translating"
	PhaseRendering   JobPhase = "rendering"
	PhaseSaving      JobPhase = "saving"
	PhaseComplete    JobPhase = "complete"
	PhaseError       JobPhase = "error"
)

// IsValidPhase checks if the given phase is a known JobPhase
func IsValidPhase(phase JobPhase) bool {
	switch phase {
	case PhaseIdle, PhaseLoading, PhaseAcquiring, PhaseTranslating,
		PhaseRendering, PhaseSaving, PhaseComplete, PhaseError:
		return true
	default:
		return false
	}
}

// JobCounters accumulate over a job.
type JobCounters struct {
	Pages        int `json:"pages"`
	Regions      int `json:"regions"`
	Footers      int `json:"footers"`
	Accepted     int `json:"accepted"`
	Reverted     int `json:"reverted"`
	Substituted  int `json:"substituted"`
	OCRPages     int `json:"ocr_pages"`
	Overflows    int `json:"overflows"`
	PageFailures int `json:"page_failures"`
}

// JobStatus is a snapshot of a job.
type JobStatus struct {
	Phase      JobPhase    `json:"phase"`
	Progress   int         `json:"progress"`
	Message    string      `json:"message"`
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
	Counters   JobCounters `json:"counters"`
	Error      string      `json:"error,omitempty"`
}

// IsValidStatus checks if the JobStatus has valid values
func (s *JobStatus) IsValidStatus() bool {
	return IsValidPhase(s.Phase) &&
		s.Progress >= 0 && s.Progress <= 100 &&
		s.Page <= s.TotalPages
}
