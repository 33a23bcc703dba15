package transcribe

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"strconv"

	"github.com/keytrace/keytrace/internal/cache"
	apperrors "github.com/keytrace/keytrace/internal/errors"
	"github.com/keytrace/keytrace/pkg/log"
)

// Config describes the external inference process that turns samples into a
// MIDI file. Device selection is a deployment-time choice injected here, not
// a per-request decision.
type Config struct {
	Command    string   // inference executable, e.g. "python3"
	Args       []string // leading arguments, e.g. ["-m", "piano_transcription_cli"]
	Device     string   // "cuda" or "cpu"
	SampleRate int      // rate the model requires its input at
}

// Engine invokes the transcription model. Raw mono f32le samples are fed on
// stdin; the model writes standard MIDI to the staged output path. The MIDI
// artifact only ever appears at its final derived path after a successful
// run, so a failed invocation cannot poison the cache.
type Engine struct {
	cfg   Config
	store *cache.Store
}

func New(cfg Config, store *cache.Store) *Engine {
	return &Engine{cfg: cfg, store: store}
}

func (e *Engine) SampleRate() int {
	return e.cfg.SampleRate
}

func (e *Engine) Transcribe(ctx context.Context, samples []float32, midiPath string) error {
	staged := e.store.Stage(midiPath)

	args := append(append([]string{}, e.cfg.Args...),
		"--device", e.cfg.Device,
		"--sample-rate", strconv.Itoa(e.cfg.SampleRate),
		"--output", staged,
	)
	cmd := exec.CommandContext(ctx, e.cfg.Command, args...)
	cmd.Stdin = bytes.NewReader(pcmFromSamples(samples))

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		e.store.Discard(staged)
		return fmt.Errorf("%w: %v (device %s, stderr: %s)",
			apperrors.ErrTranscriptionFailed, err, e.cfg.Device, stderr.String())
	}

	if err := e.store.Commit(staged, midiPath); err != nil {
		e.store.Discard(staged)
		return fmt.Errorf("%w: %v", apperrors.ErrTranscriptionFailed, err)
	}

	log.Info("transcribed %d samples to %s", len(samples), midiPath)
	return nil
}

// pcmFromSamples serializes samples as little-endian f32 PCM for the model's
// stdin.
func pcmFromSamples(samples []float32) []byte {
	raw := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(s))
	}
	return raw
}
