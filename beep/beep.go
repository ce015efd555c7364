// Package beep plays the short audio cues for recording start, delivery and
// failure.
package beep

import (
	"math"
	"sync/atomic"
)

var disabled atomic.Bool

func Disable() { disabled.Store(true) }

const (
	sampleRate = 44100

	// Start: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
	errorBeep   = 0.08
	errorGap    = 0.05
)

// tick renders a decaying sine into channels interleaved int16 samples.
func tick(freq, duration, volume, decay float64, channels int) []int16 {
	n := int(float64(sampleRate) * duration)
	samples := make([]int16, n*channels)
	for i := range n {
		t := float64(i) / float64(sampleRate)
		s := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * math.Exp(-t*decay))
		for c := range channels {
			samples[i*channels+c] = s
		}
	}
	return samples
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64, channels int) []int16 {
	b := tick(freq, beepDur, volume, decay, channels)
	gap := make([]int16, int(float64(sampleRate)*gapDur)*channels)
	out := make([]int16, 0, len(b)*2+len(gap))
	out = append(out, b...)
	out = append(out, gap...)
	return append(out, b...)
}

func toBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

// Cues plays through the package-level player.
type Cues struct{}

func (Cues) PlayStart() { PlayStart() }
func (Cues) PlayEnd()   { PlayEnd() }
func (Cues) PlayError() { PlayError() }

func PlayStart() {
	if !disabled.Load() {
		playStart()
	}
}

func PlayEnd() {
	if !disabled.Load() {
		playEnd()
	}
}

func PlayError() {
	if !disabled.Load() {
		playError()
	}
}
