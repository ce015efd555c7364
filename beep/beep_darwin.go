package beep

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"hark/log"
)

var (
	malgoCtx     *malgo.AllocatedContext
	device       *malgo.Device
	startSamples []byte
	endSamples   []byte
	errorSamples []byte
	soundOnce    sync.Once

	// read from the device callback
	playing atomic.Pointer[[]byte]
	playPos atomic.Uint32
	playMu  sync.Mutex
)

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, malgo.DeviceCallbacks{Data: dataCallback})
	return err
}

func initSound() {
	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Warnf("beep: malgo context: %v", err)
		return
	}

	startSamples = toBytes(tick(startFreq, 0.03, startVolume, startDecay, 1))
	endSamples = toBytes(tick(endFreq, 0.05, endVolume, endDecay, 1))
	errorSamples = toBytes(doubleBeep(errorFreq, errorBeep, errorGap, errorVolume, errorDecay, 1))

	if err := initDevice(); err != nil {
		log.Warnf("beep: playback device: %v", err)
		malgoCtx.Uninit()
		malgoCtx = nil
	}
}

func Init() { soundOnce.Do(initSound) }

func dataCallback(out, _ []byte, frameCount uint32) {
	want := frameCount * 2
	var n uint32

	if samples := playing.Load(); samples != nil {
		pos := playPos.Load()
		remaining := uint32(len(*samples)) - pos
		n = min(want, remaining)
		copy(out[:n], (*samples)[pos:pos+n])
		playPos.Store(pos + n)
		if remaining == 0 {
			playing.Store(nil)
		}
	}
	clear(out[n:want])
}

func playBytes(samples []byte) {
	Init()
	if malgoCtx == nil || len(samples) == 0 {
		return
	}

	playMu.Lock()
	defer playMu.Unlock()

	if device == nil {
		return
	}
	device.Stop()
	playPos.Store(0)
	playing.Store(&samples)

	if err := device.Start(); err != nil {
		// device is lost after sleep/wake; recreate once
		device.Uninit()
		if err := initDevice(); err != nil {
			playing.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			playing.Store(nil)
		}
	}
}

func playStart() { playBytes(startSamples) }
func playEnd()   { playBytes(endSamples) }
func playError() { playBytes(errorSamples) }
