package llm

import (
	"context"

	"google.golang.org/genai"
)

type geminiBackend struct {
	client *genai.Client
}

func newGemini(ctx context.Context, cfg Config) (*geminiBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &geminiBackend{client: client}, nil
}

func (b *geminiBackend) complete(ctx context.Context, model string, p Prompt, maxTokens int) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     ptr[float32](0),
		MaxOutputTokens: int32(maxTokens),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: p.System}},
		},
	}
	resp, err := b.client.Models.GenerateContent(ctx, model, genai.Text(p.User), config)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func ptr[T any](v T) *T { return &v }
