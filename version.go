package patchsync

// Version is the release version, overridable at build time via
// -ldflags "-X github.com/aweris/patchsync.Version=...".
var Version = "dev"
