package auth

// Package auth checks bearer token freshness locally, without contacting a server.
