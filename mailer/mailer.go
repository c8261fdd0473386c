package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"resort-billing/config"
	"resort-billing/logger"
	"resort-billing/models"
	"resort-billing/reminder"
)

var ErrNoRecipient = errors.New("invoice has no email address")

// Mailer renders reminder emails and hands them to a Sender.
type Mailer struct {
	sender  Sender
	from    string
	company string
	limiter *rate.Limiter
	now     func() time.Time
	loc     *time.Location
	log     zerolog.Logger
}

var _ reminder.Mailer = (*Mailer)(nil)

type Option func(*Mailer)

func WithClock(now func() time.Time) Option {
	return func(m *Mailer) { m.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(m *Mailer) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithRateLimit caps outbound messages per second. rps <= 0 disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(m *Mailer) {
		if rps <= 0 {
			m.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		m.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func NewMailer(sender Sender, from, company string, opts ...Option) *Mailer {
	m := &Mailer{
		sender:  sender,
		from:    from,
		company: company,
		now:     time.Now,
		loc:     time.Local,
		log:     logger.WithComponent("mailer"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// New builds the Sender chain from configuration.
func New(ctx context.Context, cfg config.MailConfig, company string, loc *time.Location) (*Mailer, error) {
	log := logger.WithComponent("mailer")
	composite := NewCompositeSender()

	for _, t := range cfg.Transports {
		switch t {
		case "log":
			composite.Add(NewLogSender(log))
		case "smtp":
			composite.Add(NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.From))
		case "file":
			fs, err := NewFileSender(cfg.FilePath)
			if err != nil {
				return nil, err
			}
			composite.Add(fs)
		case "redis":
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPass,
				DB:       cfg.RedisDB,
			})
			if err := client.Ping(ctx).Err(); err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("redis outbox %s: %w", cfg.RedisAddr, err)
			}
			composite.Add(NewRedisSender(client, cfg.OutboxKey, cfg.From))
		default:
			return nil, fmt.Errorf("unknown mail transport %q", t)
		}
		log.Info().Str("transport", t).Msg("mail transport enabled")
	}

	var sender Sender = composite
	if len(composite.senders) == 1 {
		sender = composite.senders[0]
	}
	return NewMailer(sender, cfg.From, company,
		WithLocation(loc),
		WithRateLimit(cfg.RatePerSec, cfg.Burst),
	), nil
}

// SendReminder renders and sends one reminder for inv. It returns the Message-ID.
func (m *Mailer) SendReminder(ctx context.Context, inv *models.Invoice, t models.ReminderType, tmpl, subject string) (string, error) {
	if strings.TrimSpace(inv.Email) == "" {
		return "", ErrNoRecipient
	}
	def, ok := defaultContent[t]
	if !ok {
		def = defaultContent[models.ReminderOn]
	}

	data := m.data(inv, t)
	subj, err := render("subject", subject, def.subject, data)
	if err != nil {
		return "", err
	}
	subj = strings.TrimSpace(strings.ReplaceAll(subj, "\n", " "))
	body, err := render("body", tmpl, def.body, data)
	if err != nil {
		return "", err
	}

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("mail rate limiter: %w", err)
		}
	}

	msgID := m.messageID()
	raw := m.compose(inv.Email, subj, body, msgID)
	if err := m.sender.Send(ctx, []string{inv.Email}, subj, raw); err != nil {
		return "", err
	}
	m.log.Debug().Str("invoice", inv.InvoiceNumber).Str("to", inv.Email).Str("message_id", msgID).Msg("reminder email handed to transport")
	return msgID, nil
}

// Close releases transport resources (redis clients).
func (m *Mailer) Close() error {
	if c, ok := m.sender.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (m *Mailer) data(inv *models.Invoice, t models.ReminderType) TemplateData {
	d := TemplateData{
		Company:       m.company,
		InvoiceNumber: inv.InvoiceNumber,
		GuestName:     inv.GuestName,
		Email:         inv.Email,
		Total:         inv.FinalAmount.StringFixed(2),
		Paid:          inv.PaidAmount.StringFixed(2),
		Balance:       inv.Balance().StringFixed(2),
		Type:          t,
	}
	if d.GuestName == "" {
		d.GuestName = "guest"
	}
	if inv.DueDate != nil {
		y, mo, day := inv.DueDate.Date()
		due := time.Date(y, mo, day, 0, 0, 0, 0, time.UTC)
		ny, nm, nd := m.now().In(m.loc).Date()
		today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
		days := int(due.Sub(today).Hours() / 24)

		d.DueDate = due.Format("2006-01-02")
		if days > 0 {
			d.DaysUntilDue = days
		} else {
			d.DaysOverdue = -days
		}
	}
	return d
}

func (m *Mailer) messageID() string {
	domain := "localhost"
	if at := strings.LastIndex(m.from, "@"); at >= 0 && at < len(m.from)-1 {
		domain = m.from[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

func (m *Mailer) compose(to, subject, body, msgID string) []byte {
	var b bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }

	header("From", m.from)
	header("To", to)
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("Date", m.now().Format(time.RFC1123Z))
	header("Message-ID", msgID)
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return b.Bytes()
}
