package models

import "errors"

// Error categories. Lower layers wrap their failures with one of these so the
// boundary can map them to a response without inspecting error strings.
var (
	ErrUnsupportedInput   = errors.New("unsupported input")
	ErrConfiguration      = errors.New("configuration error")
	ErrEmbeddingProvider  = errors.New("embedding provider error")
	ErrIndexTransport     = errors.New("vector index transport error")
	ErrSummarizerProvider = errors.New("summarizer provider error")
)
