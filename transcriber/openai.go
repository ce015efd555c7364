package transcriber

const (
	openaiBaseURL = "https://api.openai.com/v1"
	openaiModel   = "whisper-1"
)

func NewOpenAI(apiKey string) *Whisper {
	return newWhisper("openai", openaiModel, openaiBaseURL, apiKey)
}
