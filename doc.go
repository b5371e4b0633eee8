// Package patchsync keeps a local directory synchronized with a remote
// patch manifest.
//
// A run fetches the manifest, decides which local files are missing,
// wrong-sized, or hash-mismatched, downloads only those, verifies the
// fresh content, and optionally removes files the manifest no longer
// references. Verified hashes are cached between runs so repeat syncs
// stay cheap.
//
// Basic usage:
//
//	s := patchsync.New("https://patch.example.com", "/opt/game")
//
//	out, err := s.Sync(ctx, cachedHashes, false, false)
//
//	// Persist the deltas: merge out.Updated into the cache and drop
//	// the keys of out.Deleted. Nil maps mean nothing changed.
//
// With collaborators wired in:
//
//	s := patchsync.New(root, dir,
//	    patchsync.WithLogger(logger),
//	    patchsync.WithConfirmer(prompt),
//	    patchsync.WithProgress(newBar),
//	)
package patchsync
