package sound

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/facewatch/internal/conf"
	"github.com/tphakala/facewatch/internal/errors"
)

func writeWAV(t *testing.T, bitDepth, channels int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "alert.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, 16000, bitDepth, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: 16000, NumChannels: channels},
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestLoadWAV_16Bit(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, 16, 1, []int{0, 1000, -1000, 32767, -32768})
	clip, err := LoadWAV(path)
	require.NoError(t, err)

	assert.Equal(t, 1, clip.Channels)
	assert.Equal(t, 16000, clip.SampleRate)
	assert.Equal(t, []int16{0, 1000, -1000, 32767, -32768}, clip.Samples)
}

func TestLoadWAV_Stereo24Bit(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, 24, 2, []int{256, 512, 0x7FFF00, 0})
	clip, err := LoadWAV(path)
	require.NoError(t, err)

	assert.Equal(t, 2, clip.Channels)
	assert.Equal(t, 2, clip.Frames())
	assert.Equal(t, []int16{1, 2, 0x7FFF, 0}, clip.Samples)
}

func TestLoadWAV_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadWAV(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))

	junk := filepath.Join(t.TempDir(), "junk.wav")
	require.NoError(t, os.WriteFile(junk, []byte("definitely not a riff file"), 0o600))
	_, err = LoadWAV(junk)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryPlayback))
}

func TestChime(t *testing.T) {
	t.Parallel()

	clip := Chime()
	assert.Equal(t, 1, clip.Channels)
	assert.Equal(t, DefaultSampleRate, clip.SampleRate)
	assert.Equal(t, 350*time.Millisecond, clip.Duration())

	// faded in
	assert.Equal(t, int16(0), clip.Samples[0])
}

func TestClip_ScaledAndBytes(t *testing.T) {
	t.Parallel()

	clip := &Clip{Samples: []int16{1000, -1000, 2}, Channels: 1, SampleRate: 8000}

	half := clip.Scaled(0.5)
	assert.Equal(t, []int16{500, -500, 1}, half.Samples)
	assert.Equal(t, []int16{1000, -1000, 2}, clip.Samples, "source untouched")

	assert.Equal(t, []int16{1000, -1000, 2}, clip.Scaled(3).Samples)
	assert.Equal(t, []int16{0, 0, 0}, clip.Scaled(-1).Samples)

	assert.Equal(t, []byte{0xE8, 0x03, 0x18, 0xFC, 0x02, 0x00}, clip.Bytes())
}

func TestNewPlayer(t *testing.T) {
	t.Parallel()

	p, err := NewPlayer(&conf.AlertSettings{Enabled: true, Volume: 1})
	require.NoError(t, err)
	assert.Len(t, p.pcm, len(Chime().Samples)*2)
	assert.Equal(t, 1, p.channels)

	_, err = NewPlayer(&conf.AlertSettings{Enabled: true, SoundFile: "/nonexistent/alert.wav"})
	require.Error(t, err)
}
