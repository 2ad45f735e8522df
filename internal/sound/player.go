package sound

import (
	"context"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/facewatch/internal/conf"
	"github.com/tphakala/facewatch/internal/errors"
	"github.com/tphakala/facewatch/internal/logger"
)

// Player plays one alert clip on the default output device.
type Player struct {
	pcm        []byte
	channels   int
	sampleRate int
	log        logger.Logger

	playing sync.Mutex
}

// NewPlayer prepares the alert clip from settings. An empty sound file selects
// the built-in chime.
func NewPlayer(settings *conf.AlertSettings) (*Player, error) {
	clip := Chime()
	if settings.SoundFile != "" {
		loaded, err := LoadWAV(settings.SoundFile)
		if err != nil {
			return nil, err
		}
		clip = loaded
	}
	return NewPlayerFromClip(clip.Scaled(settings.Volume)), nil
}

// NewPlayerFromClip wraps an already prepared clip.
func NewPlayerFromClip(clip *Clip) *Player {
	return &Player{
		pcm:        clip.Bytes(),
		channels:   clip.Channels,
		sampleRate: clip.SampleRate,
		log:        GetLogger(),
	}
}

// Play blocks until the clip finished or ctx is done. A call made while
// another playback is running returns immediately.
func (p *Player) Play(ctx context.Context) error {
	if !p.playing.TryLock() {
		p.log.Trace("alert already playing, skipping")
		return nil
	}
	defer p.playing.Unlock()

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		p.log.Trace("malgo", logger.String("message", message))
	})
	if err != nil {
		return playbackError(err, "init_context")
	}
	defer func() {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
	}()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(p.channels)
	deviceConfig.SampleRate = uint32(p.sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	done := make(chan struct{})
	var finish sync.Once
	offset := 0

	onSendFrames := func(pOutput, _ []byte, _ uint32) {
		n := copy(pOutput, p.pcm[offset:])
		offset += n
		clear(pOutput[n:])
		if offset >= len(p.pcm) {
			finish.Do(func() { close(done) })
		}
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSendFrames,
	})
	if err != nil {
		return playbackError(err, "init_device")
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return playbackError(err, "start_device")
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
	_ = device.Stop()
	return nil
}

func playbackError(err error, op string) error {
	return errors.New(err).
		Component("sound").
		Category(errors.CategoryPlayback).
		Context("operation", op).
		Build()
}
