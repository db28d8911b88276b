package encode

// Package encode streams raw bytes through a text-only write primitive. Each
// byte becomes one ISO-8859-1 code unit; when the sink rejects that, the
// payload is rewritten from the start as block-wise base64. Memory use is
// bounded by the chunk size, not the payload size.
