package sentinel

import "errors"

// ErrNotFound is returned (optionally wrapped) by stores when a key or row does
// not exist or has expired. Services translate it into domain errors.
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var ErrNotFound = errors.New("not found")
