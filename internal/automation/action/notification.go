package action

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"

	"lookout/internal/automation"
	"lookout/internal/broker"
	"lookout/pkg/models"
)

type EmailSender interface {
	Send(ctx context.Context, to []string, subject, htmlBody, textBody string) error
}

type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, to []string, subject, htmlBody, textBody string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients specified")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.Emails.Send(&resend.SendEmailRequest{
		From:    s.from,
		To:      to,
		Subject: subject,
		Html:    htmlBody,
		Text:    textBody,
	})
	if err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	return nil
}

// NotificationExecutor delivers email directly and hands push and sms to the
// notification service over the broker.
type NotificationExecutor struct {
	email    EmailSender
	producer broker.Producer
	topic    string
	source   string
}

func NewNotificationExecutor(email EmailSender, producer broker.Producer, topic, source string) *NotificationExecutor {
	return &NotificationExecutor{email: email, producer: producer, topic: topic, source: source}
}

func (e *NotificationExecutor) Execute(ctx context.Context, rule automation.Rule, event models.EventMessage, command interface{}) (json.RawMessage, error) {
	cmd, ok := command.(NotificationCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", command)
	}

	title := cmd.Title
	if title == "" {
		title = fmt.Sprintf("[%s] %s", strings.ToUpper(event.Severity), event.EventType)
	}

	var relayed []string
	for _, channel := range cmd.Channels {
		switch channel {
		case ChannelEmail:
			if e.email == nil {
				return nil, fmt.Errorf("email delivery is not configured")
			}
			if err := e.email.Send(ctx, cmd.Recipients, title, renderEmail(title, cmd.Message, event), cmd.Message); err != nil {
				return nil, err
			}
		default:
			relayed = append(relayed, channel)
		}
	}

	if len(relayed) > 0 {
		if e.producer == nil {
			return nil, fmt.Errorf("notification channels %v require a broker", relayed)
		}
		msg := models.NotificationMessage{
			RuleID:         rule.ID,
			EventID:        event.ID,
			OrganizationID: event.OrganizationID,
			Channels:       relayed,
			Recipients:     cmd.Recipients,
			Title:          title,
			Message:        cmd.Message,
			Severity:       event.Severity,
		}
		envelope, err := models.NewEnvelope(uuid.New().String(), models.TypeNotification, e.source, event.PartitionKey(), msg)
		if err != nil {
			return nil, err
		}
		if err := e.producer.Publish(ctx, e.topic, envelope); err != nil {
			return nil, fmt.Errorf("failed to hand off notification: %w", err)
		}
	}

	out, _ := json.Marshal(cmd)
	return out, nil
}

func renderEmail(title, message string, event models.EventMessage) string {
	var b strings.Builder
	b.WriteString("<h2>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</h2>")
	if message != "" {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(message))
		b.WriteString("</p>")
	}
	fmt.Fprintf(&b, "<p>Event <code>%s</code> (%s, %s) at %s</p>",
		html.EscapeString(event.ID),
		html.EscapeString(event.EventType),
		html.EscapeString(event.Severity),
		event.OccurredAt.UTC().Format("2006-01-02 15:04:05 MST"),
	)
	return b.String()
}
