package resilience

import (
	"errors"

	"github.com/rotisserie/eris"
)

// ErrorKind classifies a recovered pipeline error for counting and reporting.
type ErrorKind string

const (
	KindComplianceDenied   ErrorKind = "compliance_denied"
	KindRateLimited        ErrorKind = "rate_limited"
	KindTransport          ErrorKind = "transport_error"
	KindValidationRejected ErrorKind = "validation_rejected"
	KindMergeAmbiguous     ErrorKind = "merge_ambiguous"
	KindPipelineFatal      ErrorKind = "pipeline_fatal"
)

// KindError tags an error with its kind and the source it came from.
type KindError struct {
	Kind   ErrorKind
	Source string
	Err    error
}

func (e *KindError) Error() string {
	if e.Source == "" {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind) + " [" + e.Source + "]: " + e.Err.Error()
}

func (e *KindError) Unwrap() error { return e.Err }

// WithKind tags err. A nil err stays nil.
func WithKind(err error, kind ErrorKind, source string) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: kind, Source: source, Err: err}
}

// NewKind creates a tagged error from a message.
func NewKind(kind ErrorKind, source, msg string) error {
	return &KindError{Kind: kind, Source: source, Err: eris.New(msg)}
}

// KindOf returns the kind of err. Untagged transient errors are transport
// errors; other untagged errors are fatal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	if IsTransient(err) {
		return KindTransport
	}
	return KindPipelineFatal
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	return err != nil && KindOf(err) == KindPipelineFatal
}
