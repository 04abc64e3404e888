package errcodes

import "errors"

var (
	ErrNoRecordFound    = errors.New("no record found")
	ErrContextCancelled = errors.New("context cancelled")
)
