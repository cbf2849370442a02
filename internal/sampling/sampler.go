// Package sampling abstracts the language-model channel used to generate
// responses for detected chain events. The watcher only depends on the
// Sampler interface; the concrete backend is chosen at wiring time.
package sampling

import "context"

// Message is a single conversational turn submitted for sampling.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one sampling call.
type Request struct {
	Messages       []Message `json:"messages"`
	SystemPrompt   string    `json:"systemPrompt,omitempty"`
	IncludeContext string    `json:"includeContext,omitempty"`
	MaxTokens      int       `json:"maxTokens,omitempty"`
}

// Content is the typed payload of a sampling response.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Response is the result of a sampling call.
type Response struct {
	Content Content `json:"content"`
	Model   string  `json:"model,omitempty"`
}

// Sampler generates a response for a sampling request. Implementations must
// honor ctx cancellation; callers bound every request with a deadline.
type Sampler interface {
	RequestSample(ctx context.Context, req Request) (*Response, error)
}
