package recorder

func inputFor(device string) (format, input string) {
	if device == "" {
		device = "default"
	}
	return "pulse", device
}
