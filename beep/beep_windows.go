package beep

import (
	"github.com/gen2brain/beeep"

	"hark/log"
)

func Init() {}

func play(freq float64, ms int) {
	go func() {
		if err := beeep.Beep(freq, ms); err != nil {
			log.Warnf("beep: %v", err)
		}
	}()
}

func playStart() { play(startFreq, 60) }
func playEnd()   { play(endFreq, 80) }

func playError() {
	go func() {
		for range 2 {
			if err := beeep.Beep(errorFreq, 80); err != nil {
				log.Warnf("beep: %v", err)
				return
			}
		}
	}()
}
