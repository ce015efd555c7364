package beep

import (
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"

	"hark/log"
)

var (
	startSamples []int16
	endSamples   []int16
	errorSamples []int16
	soundOnce    sync.Once
)

// Ticks carry a 200ms tail so PulseAudio fills its buffer before draining.
func initSound() {
	startSamples = tick(startFreq, 0.2, startVolume, startDecay, 2)
	endSamples = tick(endFreq, 0.2, endVolume, endDecay, 2)
	errorSamples = doubleBeep(errorFreq, errorBeep, errorGap, errorVolume, errorDecay, 2)
}

func Init() { soundOnce.Do(initSound) }

func playSamples(samples []int16) {
	if len(samples) == 0 {
		return
	}
	c, err := pulse.NewClient(pulse.ClientApplicationName("hark"))
	if err != nil {
		log.Warnf("beep: pulse client: %v", err)
		return
	}
	defer c.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		log.Warnf("beep: playback: %v", err)
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}

func playStart() {
	Init()
	go playSamples(startSamples)
}

func playEnd() {
	Init()
	go playSamples(endSamples)
}

func playError() {
	Init()
	go playSamples(errorSamples)
}
