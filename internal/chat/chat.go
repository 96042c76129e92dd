// Package chat talks to the training assistant and loads the routines it
// generates.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/herofit/storefront/internal/api"
)

// ErrEmptyMessage is returned when there is nothing to send.
var ErrEmptyMessage = errors.New("empty chat message")

// BotSender is the name replies are attributed to.
const BotSender = "bot"

// Backend is the chat endpoint. *api.Client implements it.
type Backend interface {
	SendChat(ctx context.Context, sender, message string) ([]api.ChatMessage, error)
}

// Message is one transcript line.
type Message struct {
	From string
	Text string
	At   time.Time
}

// Service keeps the conversation transcript.
type Service struct {
	backend Backend
	log     logrus.FieldLogger
	now     func() time.Time

	mu      sync.Mutex
	history []Message
}

// NewService builds a Service with an empty transcript.
func NewService(backend Backend, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{backend: backend, log: log.WithField("component", "chat"), now: time.Now}
}

// Send posts message as sender and returns the assistant's replies. The
// outgoing message is kept in the transcript even when the call fails.
func (s *Service) Send(ctx context.Context, sender, message string) ([]Message, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	s.append(Message{From: sender, Text: message, At: s.now()})

	replies, err := s.backend.SendChat(ctx, sender, message)
	if err != nil {
		s.log.WithError(err).Warn("chat send failed")
		return nil, fmt.Errorf("send chat: %w", err)
	}

	out := make([]Message, 0, len(replies))
	for _, r := range replies {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		out = append(out, Message{From: BotSender, Text: r.Text, At: s.now()})
	}
	s.append(out...)
	s.log.WithField("replies", len(out)).Debug("chat replies received")
	return out, nil
}

// History returns a copy of the transcript.
func (s *Service) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Service) append(msgs ...Message) {
	s.mu.Lock()
	s.history = append(s.history, msgs...)
	s.mu.Unlock()
}
