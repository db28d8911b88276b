package download

// Package download runs transfer sessions. A session validates the token,
// negotiates the transfer mode, writes the content through the chunked
// encoder or the stream downloader, commits it atomically and writes the
// sidecar. Callers observe sessions through an event stream; concurrent
// requests for the same content key join the running session.
