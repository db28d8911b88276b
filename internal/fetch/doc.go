package fetch

// Package fetch streams a remote object into a local file with bounded
// connect and read timeouts, throttled progress callbacks and a
// temp-file-then-rename commit. It never retries.
