package llm

import (
	"context"
	"errors"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
)

type VertexGemini struct {
	client     *vertexgenai.Client
	modelName  string
	embedModel string
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName, embedModel string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	if embedModel == "" {
		embedModel = "text-embedding-004" // 768 dims, matches the memories column
	}
	return &VertexGemini{client: c, modelName: modelName, embedModel: embedModel}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

// chat prepares a session: all but the last message become history, the
// last message is what gets sent.
func (v *VertexGemini) chat(system string, messages []Message) (*vertexgenai.ChatSession, string) {
	model := v.client.GenerativeModel(v.modelName)
	if system != "" {
		model.SystemInstruction = &vertexgenai.Content{
			Parts: []vertexgenai.Part{vertexgenai.Text(system)},
		}
	}

	cs := model.StartChat()
	last := ""
	if n := len(messages); n > 0 {
		last = messages[n-1].Content
		for _, m := range messages[:n-1] {
			role := "user"
			if m.Role == "assistant" {
				role = "model"
			}
			cs.History = append(cs.History, &vertexgenai.Content{
				Role:  role,
				Parts: []vertexgenai.Part{vertexgenai.Text(m.Content)},
			})
		}
	}
	return cs, last
}

func (v *VertexGemini) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	cs, last := v.chat(system, messages)
	resp, err := cs.SendMessage(ctx, vertexgenai.Text(last))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(vertexgenai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return b.String(), nil
}

func (v *VertexGemini) Embed(ctx context.Context, text string) ([]float32, error) {
	em := v.client.EmbeddingModel(v.embedModel)
	resp, err := em.EmbedContent(ctx, vertexgenai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil {
		return nil, errors.New("embedding response has no vector")
	}
	return resp.Embedding.Values, nil
}

func (v *VertexGemini) StreamAnswer(ctx context.Context, system string, messages []Message) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errs := make(chan error, 1)

	cs, last := v.chat(system, messages)

	go func() {
		defer close(out)
		defer close(errs)

		it := cs.SendMessageStream(ctx, vertexgenai.Text(last))
		for {
			resp, err := it.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				errs <- err
				return
			}

			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					if t, ok := part.(vertexgenai.Text); ok && string(t) != "" {
						out <- string(t)
					}
				}
			}
		}
	}()

	return out, errs
}
