package model

// Package model defines the transfer domain types shared across the engine:
// requests, negotiation results, storage targets, sidecar metadata, progress
// snapshots and the session state machine.
