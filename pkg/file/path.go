package file

import (
	"path/filepath"
	"strings"
)

// MIDIExt is appended to an audio filename to derive its MIDI artifact name.
// The audio filename (including its extension) is kept intact so the MIDI
// path stays a pure function of the audio path.
const MIDIExt = ".mid"

// MIDIPath derives the MIDI artifact path from an audio artifact path.
func MIDIPath(audioPath string) string {
	return audioPath + MIDIExt
}

// WithinDir reports whether rel, resolved against dir, stays inside dir.
// Used to confine client-supplied artifact paths to the cache directory.
func WithinDir(dir, rel string) (string, bool) {
	cleanDir := filepath.Clean(dir)
	joined := filepath.Join(cleanDir, rel)
	if !strings.HasPrefix(joined, cleanDir+string(filepath.Separator)) {
		return "", false
	}
	return joined, true
}
