package platform

// Package platform contains OS and device integration: storage tier detection,
// destination path and safe filename computation, atomic file commits and the
// Android media scanner.
