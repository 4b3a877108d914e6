package models

const (
	// DefaultQueueCapacity bounds how many actions may wait for sync.
	DefaultQueueCapacity = 100

	// DefaultBatchSize is how many actions one flush batch executes
	// concurrently.
	DefaultBatchSize = 10

	// DefaultMaxRetries is the retry ceiling applied when the caller
	// does not supply one.
	DefaultMaxRetries = 3
)
