package metadata

// Package metadata reads and writes the JSON sidecar stored next to each
// completed download.
