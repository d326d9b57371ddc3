package agentforce

// Credentials identifies the connected app and agent a conversation runs
// against.
type Credentials struct {
	ServerHost   string
	ClientID     string
	ClientSecret string
	AgentID      string
	OrgID        string
}

// Token is an OAuth access grant for the agent APIs.
type Token struct {
	AccessToken string
	InstanceURL string
}

// Session is one live agent conversation on the platform side.
type Session struct {
	ID         string
	SequenceID int64
}

// Reply is a delivered agent answer.
type Reply struct {
	Text           string
	NextSequenceID int64
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	TokenType   string `json:"token_type"`
}

type sessionRequest struct {
	ExternalSessionKey    string                 `json:"externalSessionKey"`
	InstanceConfig        instanceConfig         `json:"instanceConfig"`
	StreamingCapabilities *streamingCapabilities `json:"streamingCapabilities,omitempty"`
	BypassUser            bool                   `json:"bypassUser"`
}

type instanceConfig struct {
	Endpoint string `json:"endpoint"`
}

type streamingCapabilities struct {
	ChunkTypes []string `json:"chunkTypes"`
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
}

type messageRequest struct {
	Message messagePayload `json:"message"`
}

type messagePayload struct {
	SequenceID int64  `json:"sequenceId"`
	Type       string `json:"type"`
	Text       string `json:"text"`
}

type messageResponse struct {
	Messages []agentMessage `json:"messages"`
}

type agentMessage struct {
	Message string `json:"message"`
}
