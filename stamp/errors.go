package stamp

import "errors"

// EmptyDocumentError reports that an operation needed at least one page
// and the input had none. Classified as a client-input error.
type EmptyDocumentError struct {
	Op string
}

func (e *EmptyDocumentError) Error() string {
	return e.Op + ": document contains no pages"
}

// DecodeError reports that input bytes could not be parsed as a PDF.
// Classified as a client-input error.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// RenderError reports a text instruction the overlay builder could not
// honor: an unknown style, a non-positive size, or text the target
// encoding cannot represent. Under the fixed layouts this indicates a
// programming error, so it is classified internal.
type RenderError struct {
	Reason string
}

func (e *RenderError) Error() string { return "render: " + e.Reason }

// EncodeError reports a failure while serializing the output document.
// Classified internal.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return "encode: " + e.Err.Error() }
func (e *EncodeError) Unwrap() error { return e.Err }

// IsClientError reports whether err is caused by bad caller input
// rather than a fault in this service.
func IsClientError(err error) bool {
	var empty *EmptyDocumentError
	var decode *DecodeError
	return errors.As(err, &empty) || errors.As(err, &decode)
}
