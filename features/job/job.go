package job

import (
	"encoding/json"
	"time"
)

// HandlerIngest marks jobs whose payload is a JSON chunk array for /ingest.
const HandlerIngest = "ingest"

// Job is a journaled batch remainder: the chunk that failed and every chunk after it.
type Job struct {
	ID        string          `json:"id"`
	Handler   string          `json:"handler"`
	Payload   json.RawMessage `json:"payload"`
	Error     string          `json:"error"`
	ChunkID   string          `json:"chunk_id"`
	Retries   int             `json:"retries"`
	CreatedAt time.Time       `json:"created_at"`
}
