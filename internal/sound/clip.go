// Package sound plays the detection alert.
package sound

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/facewatch/internal/errors"
)

// DefaultSampleRate is used for the built-in tone.
const DefaultSampleRate = 44100

// Clip is interleaved signed 16-bit PCM.
type Clip struct {
	Samples    []int16
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames in the clip.
func (c *Clip) Frames() int {
	if c == nil || c.Channels == 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the playback length.
func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate == 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

// Scaled returns a copy with every sample multiplied by volume (clamped to 0..1).
func (c *Clip) Scaled(volume float64) *Clip {
	volume = max(0, min(1, volume))
	out := &Clip{
		Samples:    make([]int16, len(c.Samples)),
		Channels:   c.Channels,
		SampleRate: c.SampleRate,
	}
	for i, s := range c.Samples {
		out.Samples[i] = int16(float64(s) * volume)
	}
	return out
}

// Bytes encodes the clip as little-endian S16 frames.
func (c *Clip) Bytes() []byte {
	buf := make([]byte, 0, len(c.Samples)*2)
	for _, s := range c.Samples {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
	}
	return buf
}

// Chime returns the built-in two-note alert.
func Chime() *Clip {
	first := tone(880, 150*time.Millisecond, DefaultSampleRate)
	second := tone(1320, 200*time.Millisecond, DefaultSampleRate)
	first.Samples = append(first.Samples, second.Samples...)
	return first
}

// tone renders a mono sine wave with a short linear fade at both ends.
func tone(freq float64, d time.Duration, sampleRate int) *Clip {
	n := int(int64(d) * int64(sampleRate) / int64(time.Second))
	fade := sampleRate / 100 // 10ms
	samples := make([]int16, n)
	for i := range samples {
		amp := 0.6
		if i < fade {
			amp *= float64(i) / float64(fade)
		} else if n-i < fade {
			amp *= float64(n-i) / float64(fade)
		}
		v := math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
		samples[i] = int16(v * amp * math.MaxInt16)
	}
	return &Clip{Samples: samples, Channels: 1, SampleRate: sampleRate}
}

// LoadWAV reads a WAV file into a Clip.
func LoadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("sound").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close() //nolint:errcheck // read-only

	clip, err := DecodeWAV(f)
	if err != nil {
		return nil, errors.New(err).
			Component("sound").
			Category(errors.CategoryPlayback).
			Context("path", path).
			Build()
	}
	return clip, nil
}

// DecodeWAV decodes PCM WAV data with 8, 16, 24 or 32 bit samples.
func DecodeWAV(r io.ReadSeeker) (*Clip, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.Newf("input is not a valid WAV audio file").
			Component("sound").
			Category(errors.CategoryPlayback).
			Build()
	}

	if decoder.NumChans != 1 && decoder.NumChans != 2 {
		return nil, errors.Newf("unsupported number of channels: %d", decoder.NumChans).
			Component("sound").
			Category(errors.CategoryPlayback).
			Build()
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, errors.New(err).
			Component("sound").
			Category(errors.CategoryPlayback).
			Build()
	}

	samples, err := toInt16(buf, int(decoder.BitDepth))
	if err != nil {
		return nil, err
	}

	return &Clip{
		Samples:    samples,
		Channels:   int(decoder.NumChans),
		SampleRate: int(decoder.SampleRate),
	}, nil
}

func toInt16(buf *audio.IntBuffer, bitDepth int) ([]int16, error) {
	out := make([]int16, len(buf.Data))
	switch bitDepth {
	case 8:
		for i, v := range buf.Data {
			out[i] = int16((v - 128) << 8)
		}
	case 16:
		for i, v := range buf.Data {
			out[i] = int16(v)
		}
	case 24:
		for i, v := range buf.Data {
			out[i] = int16(v >> 8)
		}
	case 32:
		for i, v := range buf.Data {
			out[i] = int16(v >> 16)
		}
	default:
		return nil, errors.Newf("unsupported bit depth: %d", bitDepth).
			Component("sound").
			Category(errors.CategoryPlayback).
			Build()
	}
	return out, nil
}
