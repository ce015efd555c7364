package main

import (
	"context"
	"errors"

	"hark/command"
	"hark/controller"
	"hark/history"
	"hark/log"
	"hark/settings"
)

type app struct {
	ctrl    *controller.Controller
	store   *settings.Store
	history *history.History
	ui      *tui
}

// commands builds the registry every trigger source dispatches through.
func (a *app) commands() *command.Registry {
	r := command.NewRegistry()
	r.Handle(command.GrammarFix, a.ctrl.GrammarFix)
	r.Handle(command.Transcribe, a.ctrl.ToggleTranscription)
	r.Handle(command.Assistant, a.ctrl.Assistant)
	r.Handle(command.AssistantClipboard, a.ctrl.AssistantFromClipboard)
	r.Handle(command.ToggleAutoCorrect, func(context.Context) error {
		return a.toggle(settings.FlagAutoCorrect)
	})
	r.Handle(command.ToggleCondensed, func(context.Context) error {
		return a.toggle(settings.FlagCondensed)
	})
	r.Handle(command.ClearHistory, func(context.Context) error {
		n := a.history.Len()
		a.history.Clear()
		log.Infof("history cleared (%d turns)", n)
		return nil
	})
	r.OnError(func(id string, err error) {
		// Flow failures already reached the status sink.
		if errors.Is(err, controller.ErrBusy) {
			log.Infof("command %s rejected: busy", id)
			return
		}
		log.Warnf("command %s: %v", id, err)
	})
	return r
}

func (a *app) toggle(flag string) error {
	on, err := a.store.Toggle(flag)
	if err != nil {
		return err
	}
	log.Infof("%s=%v", flag, on)
	a.refreshFlags()
	return nil
}

func (a *app) refreshFlags() {
	if a.ui != nil {
		a.ui.Flags(a.store.AutoCorrect(), a.store.Condensed(), a.store.Profile())
	}
}

// controlSettings keeps the flag line current when the control API flips a flag.
type controlSettings struct {
	*settings.Store
	a *app
}

func (s controlSettings) SetFlag(name string, enabled bool) error {
	if err := s.Store.SetFlag(name, enabled); err != nil {
		return err
	}
	s.a.refreshFlags()
	return nil
}
