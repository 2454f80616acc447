package ragErrors

import "errors"

var (
	// client input
	ErrEmptyInput        = errors.New("empty input")
	ErrTooLong           = errors.New("input too long")
	ErrInjectionDetected = errors.New("prompt injection detected")

	// ingestion
	ErrExtractionEmpty     = errors.New("no text extracted")
	ErrUnreadableDocument  = errors.New("unreadable document")
	ErrTooManyPages        = errors.New("too many pages")
	ErrUnsupportedDocument = errors.New("unsupported document type")
	ErrCorpusFull          = errors.New("corpus document limit reached")
	ErrDocumentNotFound    = errors.New("document not found")

	// index and retrieval
	ErrIndexUnavailable  = errors.New("index has not been populated")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrIdentityMismatch  = errors.New("index was built with a different embedder")
	ErrInvalidK          = errors.New("k must be positive")

	ErrInvalidChunkParams = errors.New("invalid chunk parameters")
	ErrGenerationFailed   = errors.New("generation failed")
)

type ReasonCode string

const (
	ReasonEmptyInput          ReasonCode = "EmptyInput"
	ReasonTooLong             ReasonCode = "TooLong"
	ReasonInjectionDetected   ReasonCode = "InjectionDetected"
	ReasonExtractionEmpty     ReasonCode = "ExtractionEmpty"
	ReasonUnreadableDocument  ReasonCode = "UnreadableDocument"
	ReasonTooManyPages        ReasonCode = "TooManyPages"
	ReasonUnsupportedDocument ReasonCode = "UnsupportedDocument"
	ReasonCorpusFull          ReasonCode = "CorpusFull"
	ReasonDocumentNotFound    ReasonCode = "DocumentNotFound"
	ReasonIndexUnavailable    ReasonCode = "IndexUnavailable"
	ReasonDimensionMismatch   ReasonCode = "DimensionMismatch"
	ReasonIdentityMismatch    ReasonCode = "IdentityMismatch"
	ReasonInvalidK            ReasonCode = "InvalidK"
	ReasonInvalidChunkParams  ReasonCode = "InvalidChunkParams"
	ReasonGenerationFailed    ReasonCode = "GenerationFailed"
	ReasonInternal            ReasonCode = "Internal"
)

var reasons = []struct {
	err    error
	reason ReasonCode
}{
	{ErrEmptyInput, ReasonEmptyInput},
	{ErrTooLong, ReasonTooLong},
	{ErrInjectionDetected, ReasonInjectionDetected},
	{ErrExtractionEmpty, ReasonExtractionEmpty},
	{ErrUnreadableDocument, ReasonUnreadableDocument},
	{ErrTooManyPages, ReasonTooManyPages},
	{ErrUnsupportedDocument, ReasonUnsupportedDocument},
	{ErrCorpusFull, ReasonCorpusFull},
	{ErrDocumentNotFound, ReasonDocumentNotFound},
	{ErrIndexUnavailable, ReasonIndexUnavailable},
	{ErrDimensionMismatch, ReasonDimensionMismatch},
	{ErrIdentityMismatch, ReasonIdentityMismatch},
	{ErrInvalidK, ReasonInvalidK},
	{ErrInvalidChunkParams, ReasonInvalidChunkParams},
	{ErrGenerationFailed, ReasonGenerationFailed},
}

// Reason maps an error chain to its stable code. Unknown errors map to ReasonInternal.
func Reason(err error) ReasonCode {
	if err == nil {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonInternal
}

func IsClientInput(err error) bool {
	return errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrTooLong) || errors.Is(err, ErrInjectionDetected)
}

func IsIngestion(err error) bool {
	return errors.Is(err, ErrExtractionEmpty) ||
		errors.Is(err, ErrUnreadableDocument) ||
		errors.Is(err, ErrTooManyPages) ||
		errors.Is(err, ErrUnsupportedDocument)
}
