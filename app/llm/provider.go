package llm

import "context"

// Provider sends one prompt to a language model and returns its answer.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
}

type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
}

type Response struct {
	Content string
	Model   string
}
