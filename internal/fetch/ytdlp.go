package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	apperrors "github.com/keytrace/keytrace/internal/errors"
	"github.com/keytrace/keytrace/pkg/log"
)

// Config holds the fixed download and transcode options applied to every
// fetch. It is immutable once the Fetcher is constructed.
type Config struct {
	BinPath        string // yt-dlp executable
	OutputDir      string // flat cache directory for audio artifacts
	OutputTemplate string // yt-dlp output template, keyed by stable video id
	FormatSelector string // e.g. "bestaudio/best"
	AudioFormat    string // normalized container, e.g. "mp3"
	AudioQuality   string // fixed transcode quality, e.g. "192K"
	ForceOverwrite bool   // overwrite leftover partial artifacts
	ResumePartial  bool   // continue interrupted transfers
}

// DefaultConfig mirrors the production download profile: best audio-only
// encoding, normalized to mp3 at one fixed quality.
func DefaultConfig(outputDir string) Config {
	return Config{
		BinPath:        "yt-dlp",
		OutputDir:      outputDir,
		OutputTemplate: "%(id)s.%(ext)s",
		FormatSelector: "bestaudio/best",
		AudioFormat:    "mp3",
		AudioQuality:   "192K",
		ForceOverwrite: true,
		ResumePartial:  true,
	}
}

// Fetcher resolves a video URL to a local audio artifact plus a display
// title. Fetches are idempotent by the video's stable id: the derived path is
// computed from metadata alone, and an existing artifact short-circuits the
// transfer.
type Fetcher struct {
	cfg Config
}

func New(cfg Config) *Fetcher {
	return &Fetcher{cfg: cfg}
}

type probeResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Probe resolves metadata for the URL without transferring any data.
func (f *Fetcher) Probe(ctx context.Context, url string) (id, title string, err error) {
	cmd := exec.CommandContext(ctx, f.cfg.BinPath, f.probeArgs(url)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", "", fmt.Errorf("%w: %v (stderr: %s)",
			apperrors.ErrSourceUnavailable, err, stderr.String())
	}

	var info probeResult
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return "", "", fmt.Errorf("%w: unparseable metadata: %v", apperrors.ErrSourceUnavailable, err)
	}
	if info.ID == "" {
		return "", "", fmt.Errorf("%w: metadata has no video id", apperrors.ErrSourceUnavailable)
	}

	// Titles arrive in arbitrary Unicode composition from upstream metadata.
	return info.ID, norm.NFC.String(info.Title), nil
}

// AudioPath derives the stable artifact path for a video id. The container
// extension is always the normalized target format, regardless of the
// source's native container.
func (f *Fetcher) AudioPath(id string) string {
	return filepath.Join(f.cfg.OutputDir, id+"."+f.cfg.AudioFormat)
}

// Fetch resolves the URL to a local audio file and its title. When the
// derived path already exists, no data is transferred.
func (f *Fetcher) Fetch(ctx context.Context, url string) (audioPath, title string, err error) {
	id, title, err := f.Probe(ctx, url)
	if err != nil {
		return "", "", err
	}

	audioPath = f.AudioPath(id)
	if _, err := os.Stat(audioPath); err == nil {
		log.Info("audio artifact %s already exists, skipping transfer", audioPath)
		return audioPath, title, nil
	}

	cmd := exec.CommandContext(ctx, f.cfg.BinPath, f.downloadArgs(url)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", "", fmt.Errorf("%w: %v (stderr: %s)",
			apperrors.ErrTransferFailed, err, stderr.String())
	}
	if _, err := os.Stat(audioPath); err != nil {
		return "", "", fmt.Errorf("%w: expected artifact %s was not produced",
			apperrors.ErrTransferFailed, audioPath)
	}

	log.Info("downloaded %s to %s", url, audioPath)
	return audioPath, title, nil
}

func (f *Fetcher) probeArgs(url string) []string {
	return []string{
		"--dump-single-json",
		"--skip-download",
		"--no-playlist",
		"--no-warnings",
		url,
	}
}

func (f *Fetcher) downloadArgs(url string) []string {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--format", f.cfg.FormatSelector,
		"--extract-audio",
		"--audio-format", f.cfg.AudioFormat,
		"--audio-quality", f.cfg.AudioQuality,
		"--paths", f.cfg.OutputDir,
		"--output", f.cfg.OutputTemplate,
	}
	if f.cfg.ForceOverwrite {
		args = append(args, "--force-overwrites")
	}
	if f.cfg.ResumePartial {
		args = append(args, "--continue")
	}
	return append(args, url)
}
