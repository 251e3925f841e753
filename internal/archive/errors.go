package archive

import "errors"

// Sentinel kinds for archival errors.
var (
	ErrScan    = errors.New("scan failed")
	ErrArchive = errors.New("archive site failed")
)
