package recorder

// dshow has no default device; callers resolve one before starting.
func inputFor(device string) (format, input string) {
	return "dshow", "audio=" + device
}
