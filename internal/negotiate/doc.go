package negotiate

// Package negotiate asks the content endpoint how a piece of content will be
// delivered: as bytes inline in the response, or as a URL for a streamed
// fetch. Concurrent negotiations for the same content key share one request.
