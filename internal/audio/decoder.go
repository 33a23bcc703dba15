package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"strconv"

	apperrors "github.com/keytrace/keytrace/internal/errors"
)

// Decoder converts an audio artifact into mono float32 samples at the
// transcription model's required rate, fully in memory. ffmpeg does the
// container parsing, resampling and channel fold-down.
type Decoder struct {
	ffmpegCmd  string
	sampleRate int
}

func NewDecoder(sampleRate int) *Decoder {
	return &Decoder{
		ffmpegCmd:  "ffmpeg",
		sampleRate: sampleRate,
	}
}

func (d *Decoder) SampleRate() int {
	return d.sampleRate
}

func (d *Decoder) Decode(ctx context.Context, audioPath string) ([]float32, error) {
	cmdPath, err := exec.LookPath(d.ffmpegCmd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDecodeFailed, err)
	}

	cmd := exec.CommandContext(ctx, cmdPath, d.decodeArgs(audioPath)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v (stderr: %s)",
			apperrors.ErrDecodeFailed, err, stderr.String())
	}

	samples, err := samplesFromPCM(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: %s decoded to zero samples", apperrors.ErrDecodeFailed, audioPath)
	}
	return samples, nil
}

func (d *Decoder) decodeArgs(audioPath string) []string {
	return []string{
		"-v", "error",
		"-i", audioPath,
		"-f", "f32le",
		"-ac", "1",
		"-ar", strconv.Itoa(d.sampleRate),
		"pipe:1",
	}
}

// samplesFromPCM reinterprets raw little-endian f32 PCM as samples.
func samplesFromPCM(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("%w: truncated PCM stream (%d bytes)", apperrors.ErrDecodeFailed, len(raw))
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return samples, nil
}
