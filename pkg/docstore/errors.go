package docstore

import "errors"

var (
	ErrNotFound  = errors.New("docstore: document not found")
	ErrCorrupted = errors.New("docstore: checksum mismatch")
	ErrEmptyKey  = errors.New("docstore: empty key")
)
