package llm

import (
	"fmt"
	"net/http"
)

// FirstChoice returns the first choice of a ChatResponse. A nil response or
// one without choices yields a retryable ErrEmptyResponse.
func FirstChoice(resp *ChatResponse, provider string) (ChatChoice, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return ChatChoice{}, &Error{
			Code:       ErrEmptyResponse,
			Message:    fmt.Sprintf("%s returned no choices", provider),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Provider:   provider,
		}
	}
	return resp.Choices[0], nil
}
