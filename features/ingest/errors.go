package ingest

import "fmt"

type Kind string

const (
	KindEmbed         Kind = "embed"
	KindMissingVector Kind = "missing_vector"
	KindUpsert        Kind = "upsert"
)

// ChunkError aborts a batch. Index is the chunk's position in the request body.
type ChunkError struct {
	Index   int
	ChunkID string
	Kind    Kind
	Err     error
}

func (e *ChunkError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Describe is the log-friendly form, including the failing chunk.
func (e *ChunkError) Describe() string {
	return fmt.Sprintf("%s chunk %q (index %d): %v", e.Kind, e.ChunkID, e.Index, e.Err)
}

// Message returns the text reported to callers for a failed batch.
func Message(err error) string {
	if err == nil || err.Error() == "" {
		return "Unknown error"
	}
	return err.Error()
}
