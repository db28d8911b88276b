package ui

// Package ui contains the Fyne front end. It starts downloads through the
// download engine and renders each session from its event stream; it never
// shares mutable state with the engine.
