//go:build !linux

package device

import (
	"fmt"

	"github.com/gen2brain/malgo"
)

// List returns the capture devices known to the system audio backend. ffmpeg
// accepts the device name as input on avfoundation and dshow.
func List() ([]Info, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo init: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	devices, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	var out []Info
	for _, d := range devices {
		out = append(out, Info{ID: d.Name(), Name: d.Name()})
	}
	return out, nil
}
