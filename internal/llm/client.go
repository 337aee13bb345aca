package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/studymate/backend/internal/config"
)

// Client wraps the hosted generation API behind the three call shapes the
// product needs: streamed text, structured JSON and images. It is stateless
// per call; multi-turn context lives in ChatSession.
type Client struct {
	api        *openai.Client
	textModel  string
	imageModel string
	log        *slog.Logger
}

// Request is a single-shot generation request.
type Request struct {
	System string
	Prompt string
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	apiCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		apiCfg.BaseURL = cfg.OpenAIBaseURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}
	return &Client{
		api:        openai.NewClientWithConfig(apiCfg),
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		log:        log,
	}
}

// StreamText starts a streamed completion and forwards text deltas on the
// returned channel until the stream ends. The delta channel closes at EOF;
// a non-nil value on the error channel means the stream did not finish and
// the caller must treat the whole generation as failed. Streams are finite
// and not restartable.
func (c *Client) StreamText(ctx context.Context, req Request) (<-chan string, <-chan error) {
	deltas := make(chan string)
	errc := make(chan error, 1)

	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.textModel,
		Messages: buildMessages(req),
		Stream:   true,
	})
	if err != nil {
		close(deltas)
		errc <- classify(fmt.Errorf("open stream: %w", err))
		return deltas, errc
	}

	go func() {
		defer close(deltas)
		defer close(errc)
		defer stream.Close()
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errc <- classify(fmt.Errorf("recv stream: %w", err))
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				select {
				case deltas <- delta:
				case <-ctx.Done():
					errc <- ctx.Err()
					return
				}
			}
		}
	}()

	return deltas, errc
}

// GenerateText runs a non-streamed completion and returns the full text.
func (c *Client) GenerateText(ctx context.Context, req Request) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.textModel,
		Messages: buildMessages(req),
	})
	if err != nil {
		return "", classify(fmt.Errorf("chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStructured runs a JSON-mode completion and decodes the result into
// out. A response that does not decode into the declared shape fails loudly
// with ErrMalformedResponse; defaults are never substituted.
func (c *Client) GenerateStructured(ctx context.Context, req Request, out any) error {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.textModel,
		Messages: buildMessages(req),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return classify(fmt.Errorf("structured completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: empty choices", ErrMalformedResponse)
	}
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), out); err != nil {
		c.log.Error("structured decode failed", "err", err, "body", truncate(content, 512))
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// GenerateImage renders a prompt to a base64-encoded PNG. Callers degrade
// gracefully on failure; image errors never abort the surrounding generation.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
		Model:          c.imageModel,
		Prompt:         prompt,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return "", classify(fmt.Errorf("create image: %w", err))
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return "", fmt.Errorf("%w: empty image payload", ErrMalformedResponse)
	}
	return resp.Data[0].B64JSON, nil
}

func buildMessages(req Request) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})
	return messages
}
