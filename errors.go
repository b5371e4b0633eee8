package patchsync

import "errors"

var (
	// ErrManifest marks whole-run failures: the manifest could not be
	// fetched, or a record that should be well-formed is not.
	ErrManifest = errors.New("patchsync: bad manifest")
)
