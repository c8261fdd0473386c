package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// OutboxMessage is the JSON document pushed onto the outbox list.
type OutboxMessage struct {
	To       []string  `json:"to"`
	From     string    `json:"from"`
	Subject  string    `json:"subject"`
	Raw      string    `json:"raw"`
	QueuedAt time.Time `json:"queued_at"`
}

// RedisSender queues messages on a Redis list for an external relay worker.
type RedisSender struct {
	client redis.UniversalClient
	key    string
	from   string
}

func NewRedisSender(client redis.UniversalClient, key, from string) *RedisSender {
	if strings.TrimSpace(key) == "" {
		key = "mail:outbox"
	}
	return &RedisSender{client: client, key: key, from: from}
}

func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	data, err := json.Marshal(OutboxMessage{
		To:       to,
		From:     s.from,
		Subject:  subject,
		Raw:      string(rawMessage),
		QueuedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}
	if err := s.client.LPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("failed to queue email on '%s': %w", s.key, err)
	}
	return nil
}

func (s *RedisSender) Close() error {
	return s.client.Close()
}
