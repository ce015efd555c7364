package transcriber

const (
	groqBaseURL = "https://api.groq.com/openai/v1"
	groqModel   = "whisper-large-v3-turbo"
)

func NewGroq(apiKey string) *Whisper {
	return newWhisper("groq", groqModel, groqBaseURL, apiKey)
}
