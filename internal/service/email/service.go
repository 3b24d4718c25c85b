package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/resend/resend-go/v3"
	"golang.org/x/time/rate"

	"task-notify/internal/config"
	"task-notify/internal/domain"
	"task-notify/internal/pkg/i18n"
	"task-notify/internal/service/message"
)

var ErrNotConfigured = errors.New("email transport is not configured")

//go:embed templates/*.html
var templateFS embed.FS

var priorityColors = map[domain.Priority]string{
	domain.PriorityLow:    "#6b7280",
	domain.PriorityNormal: "#2563eb",
	domain.PriorityHigh:   "#ef4444",
}

type Service interface {
	SendNotification(ctx context.Context, toEmail, recipientName string, built domain.BuiltNotification) error
}

// transport is the part of the resend client used here.
type transport interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type service struct {
	emails  transport
	config  config.EmailConfig
	locale  string
	limiter *rate.Limiter
	tmpl    *template.Template
}

func NewService(cfg config.EmailConfig) (Service, error) {
	var emails transport
	if cfg.ResendAPIKey != "" {
		emails = resend.NewClient(cfg.ResendAPIKey).Emails
	}
	return newService(emails, cfg)
}

func newService(emails transport, cfg config.EmailConfig) (*service, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/notification.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &service{
		emails:  emails,
		config:  cfg,
		locale:  i18n.DefaultLocale,
		limiter: rate.NewLimiter(limit, burst),
		tmpl:    tmpl,
	}, nil
}

func (s *service) SendNotification(ctx context.Context, toEmail, recipientName string, built domain.BuiltNotification) error {
	if s.emails == nil {
		return ErrNotConfigured
	}
	if toEmail == "" {
		return errors.New("recipient has no email address")
	}

	body, err := s.render(recipientName, built)
	if err != nil {
		return err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("email rate limiter: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail),
		To:      []string{toEmail},
		Html:    body,
		Subject: built.Title,
	}

	if _, err := s.emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *service) render(recipientName string, built domain.BuiltNotification) (string, error) {
	var link string
	if built.ActionURL != nil {
		link = strings.TrimRight(s.config.AppURL, "/") + *built.ActionURL
	}
	color, ok := priorityColors[built.Priority]
	if !ok {
		color = priorityColors[domain.PriorityNormal]
	}

	data := struct {
		Lang        string
		Title       string
		Greeting    string
		Message     string
		Link        string
		ButtonLabel string
		Footer      string
		Color       string
	}{
		Lang:        s.locale,
		Title:       built.Title,
		Greeting:    message.Interpolate(i18n.Translate(s.locale, "email.greeting"), domain.Payload{"name": recipientName}),
		Message:     built.Message,
		Link:        link,
		ButtonLabel: i18n.Translate(s.locale, "email.open_task"),
		Footer:      i18n.Translate(s.locale, "email.footer"),
		Color:       color,
	}

	var body bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&body, "layout", data); err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return body.String(), nil
}
