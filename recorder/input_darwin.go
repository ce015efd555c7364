package recorder

func inputFor(device string) (format, input string) {
	if device == "" {
		device = "0"
	}
	return "avfoundation", ":" + device
}
