package speech

// Settings selects the provider endpoint and the models used per operation.
// Endpoint is the API base URL, e.g. https://api.openai.com/v1.
type Settings struct {
	Endpoint        string
	APIKey          string
	TranscribeModel string
	ChatModel       string
	TTSModel        string
	TTSVoice        string
	TTSFormat       string
	MaxTokens       int
	Temperature     float64
}

// Message is one chat-completion turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript is the text recovered from an audio clip.
type Transcript struct {
	Text string
}

// Synthesis is rendered speech audio plus the content type the provider
// labeled it with.
type Synthesis struct {
	Audio       []byte
	ContentType string
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message Message `json:"message"`
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format,omitempty"`
}
