package controller

type State int

const (
	Idle State = iota
	Recording
	Processing
	Done
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	case Done:
		return "done"
	case Error:
		return "error"
	}
	return "unknown"
}

type flow int

const (
	flowNone flow = iota
	flowGrammar
	flowTranscribe
	flowAssistant
	flowAssistantClip
)

func (f flow) String() string {
	switch f {
	case flowGrammar:
		return "grammar-fix"
	case flowTranscribe:
		return "transcribe"
	case flowAssistant:
		return "assistant"
	case flowAssistantClip:
		return "assistant-clipboard"
	}
	return "none"
}

// records reports whether f captures audio before processing.
func (f flow) records() bool {
	return f == flowTranscribe || f == flowAssistant
}
