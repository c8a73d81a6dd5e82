// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Sentinel errors shared by every stage. Packages wrap them with
// fmt.Errorf("...: %w", err) and callers test with errors.Is.
//
// ErrBackendUnavailable is a routing signal between the OCR probe and the
// extractor; it never reaches a caller of the pipeline.
var (
	ErrNotFound           = errors.New("not found")
	ErrTransport          = errors.New("transport error")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrParseFailure       = errors.New("parse failure")
	ErrClassification     = errors.New("classification failure")
	ErrCacheWrite         = errors.New("cache write failure")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidIdentifier  = errors.New("invalid identifier")
)
