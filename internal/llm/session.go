package llm

import (
	"context"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// ChatSession carries tutoring conversation context across turns within a
// single connection. It is not persisted; a reconnect starts fresh (the
// client caches message history independently for display).
type ChatSession struct {
	mu       sync.Mutex
	client   *Client
	messages []openai.ChatCompletionMessage
}

// NewChatSession opens a session seeded with the tutor system prompt.
func (c *Client) NewChatSession(system string) *ChatSession {
	s := &ChatSession{client: c}
	if system != "" {
		s.messages = append(s.messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	return s
}

// SendStream appends the user turn and streams the assistant's reply. The
// assistant turn is recorded in the session only when the stream finishes
// cleanly, so a failed turn can be retried without ghost context. Only one
// stream may be in flight per session.
func (s *ChatSession) SendStream(ctx context.Context, content string) (<-chan string, <-chan error) {
	s.mu.Lock()
	s.messages = append(s.messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})
	history := make([]openai.ChatCompletionMessage, len(s.messages))
	copy(history, s.messages)
	s.mu.Unlock()

	deltas := make(chan string)
	errc := make(chan error, 1)

	stream, err := s.client.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    s.client.textModel,
		Messages: history,
		Stream:   true,
	})
	if err != nil {
		s.dropLastUserTurn()
		close(deltas)
		errc <- classify(fmt.Errorf("open chat stream: %w", err))
		return deltas, errc
	}

	go func() {
		defer close(deltas)
		defer close(errc)
		defer stream.Close()

		var reply string
		for {
			chunk, err := stream.Recv()
			if err != nil {
				if isEOF(err) {
					s.recordAssistantTurn(reply)
					return
				}
				s.dropLastUserTurn()
				errc <- classify(fmt.Errorf("recv chat stream: %w", err))
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			reply += delta
			select {
			case deltas <- delta:
			case <-ctx.Done():
				s.dropLastUserTurn()
				errc <- ctx.Err()
				return
			}
		}
	}()

	return deltas, errc
}

func (s *ChatSession) recordAssistantTurn(content string) {
	s.mu.Lock()
	s.messages = append(s.messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: content,
	})
	s.mu.Unlock()
}

func (s *ChatSession) dropLastUserTurn() {
	s.mu.Lock()
	if n := len(s.messages); n > 0 && s.messages[n-1].Role == openai.ChatMessageRoleUser {
		s.messages = s.messages[:n-1]
	}
	s.mu.Unlock()
}

// Len reports the number of recorded turns, including the system prompt.
func (s *ChatSession) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
