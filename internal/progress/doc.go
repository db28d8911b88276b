package progress

// Package progress normalizes byte counts from both transfer modes into one
// monotonic fraction per session and publishes it to observers.
