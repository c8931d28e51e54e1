// Package sender доставляет уведомления из очереди по электронной почте.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	"github.com/magabrotheeeer/article-insights/internal/lib/smtp"
	"github.com/magabrotheeeer/article-insights/internal/models"
)

// SenderService отправляет письма через SMTP-транспорт.
type SenderService struct {
	transport    smtp.Dialer
	supportEmail string
	log          *slog.Logger
}

// NewSenderService создаёт SenderService. Обращения в поддержку
// пересылаются на supportEmail.
func NewSenderService(transport smtp.Dialer, supportEmail string, log *slog.Logger) *SenderService {
	return &SenderService{
		transport:    transport,
		supportEmail: supportEmail,
		log:          log,
	}
}

// HandleNotification разбирает сообщение очереди и отправляет письмо.
func (s *SenderService) HandleNotification(body []byte) error {
	const op = "sender.HandleNotification"

	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		s.log.Error("failed to unmarshal message body", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: error unmarshalling message: %w", op, err)
	}

	if n.Kind == models.NotificationSupport {
		return s.sendEmail([]string{s.supportEmail}, n.Email, supportSubject(n), supportBody(n))
	}
	if n.Email == "" {
		s.log.Warn("notification without recipient dropped", slog.String("op", op), slog.String("kind", string(n.Kind)))
		return nil
	}
	subject := n.Subject
	if subject == "" {
		subject = defaultSubject(n.Kind)
	}
	return s.sendEmail([]string{n.Email}, "", subject, greeting(n)+n.Message)
}

func defaultSubject(kind models.NotificationKind) string {
	switch kind {
	case models.NotificationUpgraded:
		return "Your subscription is active"
	case models.NotificationRenewed:
		return "Your subscription has been renewed"
	case models.NotificationCancelled:
		return "Your subscription has ended"
	case models.NotificationPaymentFailed:
		return "Payment failed"
	case models.NotificationExpiring:
		return "Your subscription expires soon"
	default:
		return "Article Insights notification"
	}
}

func greeting(n models.Notification) string {
	if n.Name == "" {
		return "Hello,\n\n"
	}
	return fmt.Sprintf("Hello, %s!\n\n", n.Name)
}

func supportSubject(n models.Notification) string {
	if n.Subject != "" {
		return "[Support] " + n.Subject
	}
	return "[Support] New request"
}

func supportBody(n models.Notification) string {
	return fmt.Sprintf("From: %s <%s>\nAccount: %s\n\n%s", n.Name, n.Email, n.AccountID, n.Message)
}

func (s *SenderService) sendEmail(to []string, replyTo, subject, bodyText string) error {
	headers := []string{
		"From: " + s.transport.From(),
		"To: " + strings.Join(to, ";"),
	}
	if replyTo != "" {
		headers = append(headers, "Reply-To: "+replyTo)
	}
	msg := strings.Join(append(headers,
		"Subject: "+subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	), "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.From()); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", s.transport.From()), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
