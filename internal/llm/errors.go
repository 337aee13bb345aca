package llm

import (
	"errors"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// The generation client surfaces a small error taxonomy so the API layer can
// map each class to a distinct user-facing message. Everything else collapses
// to a generic generation failure.
var (
	ErrInvalidAPIKey     = errors.New("generation API key missing or invalid")
	ErrQuotaExceeded     = errors.New("generation quota exceeded")
	ErrMalformedResponse = errors.New("generation returned a malformed response")
)

// classify maps transport-level errors onto the taxonomy. The original error
// stays wrapped for the logs.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return errors.Join(ErrInvalidAPIKey, err)
		case 429:
			return errors.Join(ErrQuotaExceeded, err)
		}
	}
	var authErr *openai.RequestError
	if errors.As(err, &authErr) {
		switch authErr.HTTPStatusCode {
		case 401, 403:
			return errors.Join(ErrInvalidAPIKey, err)
		case 429:
			return errors.Join(ErrQuotaExceeded, err)
		}
	}
	return err
}

// UserMessage renders the remediation message shown to the student for a
// generation failure.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAPIKey):
		return "The AI service key is missing or invalid. Please re-configure the API key."
	case errors.Is(err, ErrQuotaExceeded):
		return "The AI service quota has been exhausted. Please try again later."
	case errors.Is(err, ErrMalformedResponse):
		return "Generation failed: the AI returned an unexpected response."
	default:
		return "Generation failed. Please try again."
	}
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
