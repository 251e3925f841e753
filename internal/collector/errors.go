package collector

import "errors"

// Sentinel kinds for ingestion errors.
var (
	ErrStore     = errors.New("store write failed")
	ErrNormalize = errors.New("normalization failed")
)
