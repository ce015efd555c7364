// Package notify flashes desktop notifications for failures.
package notify

import (
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"hark/log"
)

const appName = "hark"

// send is swapped in tests.
var send = func(title, message string) error {
	return beeep.Notify(title, message, "")
}

var disabled bool

func Disable() { disabled = true }

// Notifier suppresses repeats of the same message inside window.
type Notifier struct {
	window time.Duration

	mu       sync.Mutex
	last     string
	lastSent time.Time
}

func New(window time.Duration) *Notifier {
	return &Notifier{window: window}
}

// Error shows message as a failure notification.
func (n *Notifier) Error(message string) {
	if disabled || message == "" {
		return
	}
	n.mu.Lock()
	now := time.Now()
	if message == n.last && now.Sub(n.lastSent) < n.window {
		n.mu.Unlock()
		return
	}
	n.last, n.lastSent = message, now
	n.mu.Unlock()

	if err := send(appName, message); err != nil {
		log.Warnf("notify: %v", err)
	}
}
