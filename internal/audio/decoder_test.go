package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/keytrace/keytrace/internal/errors"
)

func pcmBytes(samples ...float32) []byte {
	raw := make([]byte, 0, len(samples)*4)
	for _, s := range samples {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(s))
		raw = append(raw, buf[:]...)
	}
	return raw
}

func TestSamplesFromPCM(t *testing.T) {
	want := []float32{0, 0.5, -0.5, 1, -1}
	got, err := samplesFromPCM(pcmBytes(want...))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSamplesFromPCM_Empty(t *testing.T) {
	got, err := samplesFromPCM(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSamplesFromPCM_TruncatedStream(t *testing.T) {
	_, err := samplesFromPCM([]byte{0x01, 0x02, 0x03})
	assert.True(t, errors.Is(err, apperrors.ErrDecodeFailed))
}

// stubFfmpeg installs a fake ffmpeg on PATH that emits the given script body.
func stubFfmpeg(t *testing.T, body string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub not supported on windows")
	}

	dir := t.TempDir()
	stub := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(stub, []byte("#!/bin/sh\n"+body), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}

func TestDecoder_DecodeReadsMonoPCM(t *testing.T) {
	// One sample, 1.0 as little-endian f32 (00 00 80 3F).
	stubFfmpeg(t, `printf '\000\000\200\077'`+"\n")

	d := NewDecoder(16000)
	samples, err := d.Decode(context.Background(), "whatever.mp3")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, samples)
}

func TestDecoder_DecodeFailureWrapsStderr(t *testing.T) {
	stubFfmpeg(t, "echo 'whatever.mp3: Invalid data found' >&2\nexit 1\n")

	d := NewDecoder(16000)
	_, err := d.Decode(context.Background(), "whatever.mp3")
	assert.True(t, errors.Is(err, apperrors.ErrDecodeFailed))
	assert.Contains(t, err.Error(), "Invalid data found")
}

func TestDecoder_EmptyOutputIsDecodeFailure(t *testing.T) {
	stubFfmpeg(t, "exit 0\n")

	d := NewDecoder(16000)
	_, err := d.Decode(context.Background(), "whatever.mp3")
	assert.True(t, errors.Is(err, apperrors.ErrDecodeFailed))
}

func TestDecodeArgs(t *testing.T) {
	d := NewDecoder(16000)
	args := d.decodeArgs("/srv/cache/abc123.mp3")

	assert.Equal(t, []string{
		"-v", "error",
		"-i", "/srv/cache/abc123.mp3",
		"-f", "f32le",
		"-ac", "1",
		"-ar", "16000",
		"pipe:1",
	}, args)
	assert.Equal(t, 16000, d.SampleRate())
}
