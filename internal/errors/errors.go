package errors

import "errors"

// Sentinel errors for the pipeline's expected failure modes. Adapters wrap
// these with context; the orchestrator maps them to terminal error events.
var (
	ErrSourceUnavailable   = errors.New("source metadata could not be resolved")
	ErrTransferFailed      = errors.New("audio transfer failed")
	ErrDecodeFailed        = errors.New("audio could not be decoded")
	ErrTranscriptionFailed = errors.New("transcription failed")
)

// Kind returns the wire-level error kind for an error, as sent in the
// terminal error event. Unknown failures report as "internal".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrDecodeFailed):
		return "decode_failed"
	case errors.Is(err, ErrTranscriptionFailed):
		return "transcription_failed"
	default:
		return "internal"
	}
}
