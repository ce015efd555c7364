package device

import (
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
)

// List returns the PulseAudio sources, skipping monitors of output sinks.
func List() ([]Info, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("hark"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	defer c.Close()

	sources, err := c.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	var out []Info
	for _, s := range sources {
		if strings.HasSuffix(s.ID(), ".monitor") {
			continue
		}
		out = append(out, Info{ID: s.ID(), Name: s.Name()})
	}
	return out, nil
}
