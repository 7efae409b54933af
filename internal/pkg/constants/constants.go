// Package constants provides shared constants used across lexicat components.
package constants

// Channel buffer sizes
//
// Signals use a single-item buffer so the runtime never blocks delivering
// them. Scanner job and result queues are sized per worker so a slow writer
// applies backpressure instead of letting results pile up in memory.
const (
	// SignalChannelBuffer is the buffer size for OS signal channels
	SignalChannelBuffer = 1

	// JobsPerWorker is the number of queued inputs per scanner worker
	JobsPerWorker = 4

	// ResultsPerWorker is the number of queued records per scanner worker
	ResultsPerWorker = 64
)

// Input limits
const (
	// DefaultMaxFileSize is the largest file the scanner reads (64 MiB).
	// Larger files are skipped with a warning.
	DefaultMaxFileSize = 64 * 1024 * 1024

	// DefaultMaxStreamSize caps how much of one reassembled TCP stream is
	// kept for recognition (1 MiB)
	DefaultMaxStreamSize = 1024 * 1024

	// MaxSnapLen is the snapshot length used for generated captures
	MaxSnapLen = 65536
)

// Watchlist defaults, see internal/pkg/watchlist.
const (
	// DefaultPhoneMinDigits is the minimum digit count for a phone watch rule
	DefaultPhoneMinDigits = 7

	// DefaultBloomFPRate is the false positive rate of the phone suffix filter
	DefaultBloomFPRate = 0.001
)
