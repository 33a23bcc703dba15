package file

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMIDIPath(t *testing.T) {
	assert.Equal(t, "abc123.mp3.mid", MIDIPath("abc123.mp3"))
	assert.Equal(t, "/cache/abc123.mp3.mid", MIDIPath("/cache/abc123.mp3"))
}

func TestWithinDir(t *testing.T) {
	dir := filepath.Join("/srv", "cache")

	got, ok := WithinDir(dir, "abc123.mp3.mid")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "abc123.mp3.mid"), got)

	_, ok = WithinDir(dir, "../etc/passwd")
	assert.False(t, ok)

	_, ok = WithinDir(dir, "/../../etc/passwd")
	assert.False(t, ok)

	_, ok = WithinDir(dir, "")
	assert.False(t, ok)

	got, ok = WithinDir(dir, "nested/abc123.mp3")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "nested", "abc123.mp3"), got)
}
