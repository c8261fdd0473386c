package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"resort-billing/logger"
)

// CompositeSender delivers through every configured Sender. A message counts
// as delivered once any sender accepted it; the remaining failures are logged.
type CompositeSender struct {
	senders []Sender
	log     zerolog.Logger
}

func NewCompositeSender(senders ...Sender) *CompositeSender {
	return &CompositeSender{senders: senders, log: logger.WithComponent("mailer")}
}

func (cs *CompositeSender) Add(s Sender) {
	if s != nil {
		cs.senders = append(cs.senders, s)
	}
}

// Send fails only when no sender accepted the message.
func (cs *CompositeSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if len(cs.senders) == 0 {
		return errors.New("no senders configured")
	}
	var errs []error
	for _, s := range cs.senders {
		if err := s.Send(ctx, to, subject, rawMessage); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(cs.senders) {
		return fmt.Errorf("composite email send failed: %w", errors.Join(errs...))
	}
	if len(errs) > 0 {
		cs.log.Warn().
			Err(errors.Join(errs...)).
			Int("failed", len(errs)).
			Int("senders", len(cs.senders)).
			Strs("to", to).
			Msg("email delivered by some transports only")
	}
	return nil
}

func (cs *CompositeSender) Close() error {
	var errs []error
	for _, s := range cs.senders {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
