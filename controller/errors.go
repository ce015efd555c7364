package controller

import (
	"errors"

	"hark/processor"
	"hark/recorder"
	"hark/transcriber"
)

var (
	ErrNoSelection        = errors.New("no text selected")
	ErrNoClipboardContent = errors.New("clipboard is empty")
	ErrBusy               = errors.New("another action is in progress")
)

// Message renders err for the status line and notifications.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNoSelection):
		return "No text selected"
	case errors.Is(err, ErrNoClipboardContent):
		return "Clipboard is empty"
	case errors.Is(err, ErrBusy):
		return "Busy: finish the current action first"
	case errors.Is(err, recorder.ErrLaunchFailed):
		return "Could not start recording, check the microphone and ffmpeg"
	case errors.Is(err, recorder.ErrAlreadyRecording):
		return "Already recording"
	case errors.Is(err, recorder.ErrNotRecording):
		return "Not recording"
	case errors.Is(err, transcriber.ErrEmptyResult):
		return "No speech recognised"
	case errors.Is(err, transcriber.ErrService):
		return "Transcription failed"
	case errors.Is(err, processor.ErrEmptyResponse):
		return "The language model returned nothing"
	case errors.Is(err, processor.ErrService):
		return "Language model request failed"
	case err == nil:
		return ""
	}
	return err.Error()
}
