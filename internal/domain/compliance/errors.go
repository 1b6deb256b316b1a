package compliance

import "errors"

// ErrValidation indicates client-supplied input was malformed (HTTP 400).
var ErrValidation = errors.New("validation failed")

// ErrUnsupportedType indicates the uploaded file is not a PDF.
var ErrUnsupportedType = errors.New("unsupported file type, only PDF is allowed")

// ErrExtraction indicates the underlying PDF parse failed.
var ErrExtraction = errors.New("failed to extract text from document")

// ErrRecordNotFound indicates the analysis record does not exist or is
// not owned by the requesting user.
var ErrRecordNotFound = errors.New("analysis record not found")
