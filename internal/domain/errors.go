package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing place or an engine-reported 404.
	ErrNotFound = errors.New("not found")
	// ErrPlacetypeNotFound signals a placetype filter id or name that does not
	// resolve against the placetypes index. Filtering on an unknown placetype
	// would silently return wrong results, so this is fatal to the request.
	ErrPlacetypeNotFound = errors.New("placetype not found")
	// ErrEngineUnavailable signals that the search engine could not be reached
	// after the transport's retry budget was exhausted.
	ErrEngineUnavailable = errors.New("search engine unavailable")
	// ErrMalformedDocument signals a document structurally missing a field the
	// caller cannot work without (e.g. woe:repo for source URLs). Data
	// integrity fault, allowed to fail loudly.
	ErrMalformedDocument = errors.New("malformed document")
)

// MalformedDocumentError wraps ErrMalformedDocument with the offending WOE ID
// and the missing field.
type MalformedDocumentError struct {
	WOEID int64
	Field string
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("%s: woe:id %d missing %s", ErrMalformedDocument.Error(), e.WOEID, e.Field)
}

func (e *MalformedDocumentError) Unwrap() error { return ErrMalformedDocument }

// NewMalformedDocument creates a malformed document error.
func NewMalformedDocument(woeid int64, field string) error {
	return &MalformedDocumentError{WOEID: woeid, Field: field}
}
