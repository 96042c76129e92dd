package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

type chatRequest struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// SendChat posts a message to the assistant and returns its replies.
func (c *Client) SendChat(ctx context.Context, sender, message string) ([]ChatMessage, error) {
	var replies []ChatMessage
	if err := c.postJSON(ctx, "/chat/send", chatRequest{Sender: sender, Message: message}, &replies); err != nil {
		return nil, err
	}
	return replies, nil
}

// Routine fetches a generated training routine.
func (c *Client) Routine(ctx context.Context, id string) (Routine, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Routine{}, fmt.Errorf("routine id required")
	}
	var r Routine
	if err := c.get(ctx, "/chat/routine/"+url.PathEscape(id), nil, &r); err != nil {
		return Routine{}, err
	}
	return r, nil
}
