// Package message renders events and reminders into user-facing notifications.
package message

import (
	"regexp"
	"strings"

	"task-notify/internal/domain"
	"task-notify/internal/pkg/i18n"
)

const (
	fallbackKey    = "fallback"
	reminderPrefix = "reminder."
)

var placeholder = regexp.MustCompile(`\{([a-z0-9_]+)\}`)

// Builder is safe for concurrent use; it holds no state besides the locale.
type Builder struct {
	locale string
}

func NewBuilder(locale string) *Builder {
	if locale == "" {
		locale = i18n.DefaultLocale
	}
	return &Builder{locale: locale}
}

var defaultBuilder = NewBuilder(i18n.DefaultLocale)

// Build renders eventType with the default locale.
func Build(eventType domain.EventType, payload domain.Payload) domain.BuiltNotification {
	return defaultBuilder.Build(eventType, payload)
}

// Build never fails: unknown types use the fallback template and missing
// payload keys render as empty strings.
func (b *Builder) Build(eventType domain.EventType, payload domain.Payload) domain.BuiltNotification {
	tpl, ok := b.lookup(string(eventType))
	if !ok || !eventType.IsValid() {
		tpl, _ = b.lookup(fallbackKey)
	}
	return render(tpl, payload)
}

// BuildReminder renders the lead-time or custom reminder template for t.
func (b *Builder) BuildReminder(t domain.ReminderType, payload domain.Payload) domain.BuiltNotification {
	tpl, ok := b.lookup(reminderPrefix + string(t))
	if !ok {
		tpl, _ = b.lookup(string(domain.EventReminder))
	}
	return render(tpl, payload)
}

func (b *Builder) lookup(key string) (i18n.Template, bool) {
	if tpl, ok := i18n.Lookup(b.locale, key); ok {
		return tpl, true
	}
	if key == fallbackKey {
		return i18n.Template{Title: "Уведомление", Message: "{message}", Icon: "bell", Priority: string(domain.PriorityNormal)}, true
	}
	return i18n.Template{}, false
}

func render(tpl i18n.Template, payload domain.Payload) domain.BuiltNotification {
	built := domain.BuiltNotification{
		Title:     strings.TrimSpace(Interpolate(tpl.Title, payload)),
		Message:   strings.TrimSpace(Interpolate(tpl.Message, payload)),
		Icon:      tpl.Icon,
		Priority:  parsePriority(tpl.Priority),
		ActionURL: ActionURL(payload),
	}
	return built
}

// Interpolate replaces {key} placeholders with payload values.
func Interpolate(text string, payload domain.Payload) string {
	if !strings.Contains(text, "{") {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		return payload.String(m[1 : len(m)-1])
	})
}

// ActionURL links to the task when the payload names one. A payload
// action_url is kept only when it is an in-app path.
func ActionURL(payload domain.Payload) *string {
	if url := payload.String("action_url"); isLocalPath(url) {
		return &url
	}
	if id := payload.String("task_id"); id != "" {
		url := "/tasks/" + id
		return &url
	}
	return nil
}

// isLocalPath rejects protocol-relative links, which browsers also accept
// with a backslash in place of the second slash.
func isLocalPath(url string) bool {
	return strings.HasPrefix(url, "/") &&
		!strings.HasPrefix(url, "//") &&
		!strings.HasPrefix(url, "/\\")
}

func parsePriority(p string) domain.Priority {
	switch domain.Priority(p) {
	case domain.PriorityLow, domain.PriorityHigh:
		return domain.Priority(p)
	default:
		return domain.PriorityNormal
	}
}
