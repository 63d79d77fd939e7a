package config

const (
	// TopicIngestBatch carries JSON chunk arrays for asynchronous ingestion.
	TopicIngestBatch = "ingest.batch"

	// TopicIngestCompleted is published after a batch is fully processed.
	TopicIngestCompleted = "ingest.completed"

	// TopicIngestFailed is published when a batch aborts on an upstream failure.
	TopicIngestFailed = "ingest.failed"

	// ChannelWorker is the NSQ channel the batch consumer reads from.
	ChannelWorker = "worker"
)
