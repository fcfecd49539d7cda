package services

import (
	"context"
	"errors"
	"sync"

	"github.com/openhealth/shared-backend/internal/clients/anthropic"
)

// stubClient scripts a sequence of model replies. Each CreateMessage call
// consumes the next step; the last step repeats once the script runs out.
type stubClient struct {
	mu    sync.Mutex
	steps []stubStep
	calls []anthropic.MessageRequest
}

type stubStep struct {
	text string
	err  error
}

func newStubClient(steps ...stubStep) *stubClient {
	return &stubClient{steps: steps}
}

func reply(text string) stubStep { return stubStep{text: text} }
func fail(err error) stubStep    { return stubStep{err: err} }

func (c *stubClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, req)
	if len(c.steps) == 0 {
		return nil, errors.New("unexpected model call")
	}
	idx := len(c.calls) - 1
	if idx >= len(c.steps) {
		idx = len(c.steps) - 1
	}
	step := c.steps[idx]
	if step.err != nil {
		return nil, step.err
	}
	return &anthropic.MessageResponse{
		ID:         "msg_stub",
		Model:      req.Model,
		Content:    []anthropic.ContentBlock{{Type: "text", Text: step.text}},
		StopReason: "end_turn",
	}, nil
}

func (c *stubClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *stubClient) lastCall() anthropic.MessageRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[len(c.calls)-1]
}
