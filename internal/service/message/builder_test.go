package message

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-notify/internal/domain"
)

func TestBuild_TaskAssignedIsDeterministic(t *testing.T) {
	payload := domain.Payload{"task_title": "X", "task_id": float64(1), "assigner_name": "Анна"}

	first := Build(domain.EventTaskAssigned, payload)
	second := Build(domain.EventTaskAssigned, payload)

	assert.Equal(t, first, second)
	assert.Equal(t, "Новая задача", first.Title)
	assert.Equal(t, "Анна назначил(а) вам задачу «X»", first.Message)
	assert.Equal(t, "clipboard", first.Icon)
	assert.Equal(t, domain.PriorityNormal, first.Priority)
	require.NotNil(t, first.ActionURL)
	assert.Equal(t, "/tasks/1", *first.ActionURL)
}

func TestBuild_Priorities(t *testing.T) {
	assert.Equal(t, domain.PriorityHigh, Build(domain.EventTaskOverdue, nil).Priority)
	assert.Equal(t, domain.PriorityLow, Build(domain.EventTaskCompleted, nil).Priority)
	assert.Equal(t, domain.PriorityHigh, Build(domain.EventDeadlineApproaching, nil).Priority)
}

func TestBuild_EveryKnownTypeHasTemplate(t *testing.T) {
	for _, et := range domain.EventTypes {
		built := Build(et, domain.Payload{"message": "m"})
		if et == domain.EventReminder {
			assert.Equal(t, "Напоминание", built.Title)
			continue
		}
		assert.NotEqual(t, "Уведомление", built.Title, "event type %s fell back", et)
		assert.NotEmpty(t, built.Icon, "event type %s", et)
	}
}

func TestBuild_DeadlineApproaching(t *testing.T) {
	built := Build(domain.EventDeadlineApproaching, domain.Payload{"task_title": "Report", "hours": 2})

	assert.Contains(t, built.Title, "Приближается дедлайн")
	assert.Contains(t, built.Title, "2")
	assert.Equal(t, "До дедлайна задачи «Report» осталось 2 ч.", built.Message)
	assert.Nil(t, built.ActionURL)
}

func TestBuild_MissingKeysRenderEmpty(t *testing.T) {
	assert.NotPanics(t, func() {
		built := Build(domain.EventCommentAdded, nil)
		assert.Equal(t, "прокомментировал(а) задачу «»:", built.Message)
	})
}

func TestBuild_UnknownTypeFallback(t *testing.T) {
	built := Build(domain.EventType("deal_closed"), domain.Payload{"message": "Сделка закрыта"})

	assert.Equal(t, domain.BuiltNotification{
		Title:    "Уведомление",
		Message:  "Сделка закрыта",
		Icon:     "bell",
		Priority: domain.PriorityNormal,
	}, built)
}

func TestBuildReminder(t *testing.T) {
	b := NewBuilder("")
	taskID := uuid.New()

	built := b.BuildReminder(domain.ReminderHourBefore, domain.Payload{"task_title": "Релиз", "task_id": taskID.String()})

	assert.Equal(t, "Напоминание о дедлайне", built.Title)
	assert.Equal(t, "До дедлайна задачи «Релиз» остался один час", built.Message)
	assert.Equal(t, domain.PriorityHigh, built.Priority)
	require.NotNil(t, built.ActionURL)
	assert.Equal(t, "/tasks/"+taskID.String(), *built.ActionURL)

	for _, rt := range []domain.ReminderType{
		domain.ReminderWeekBefore, domain.ReminderDayBefore, domain.ReminderRecurring,
		domain.ReminderDeadline, domain.ReminderOverdue,
	} {
		assert.NotEmpty(t, b.BuildReminder(rt, domain.Payload{"task_title": "T"}).Message, "reminder type %s", rt)
	}
}

func TestBuild_LocaleFallsBackPerKey(t *testing.T) {
	b := NewBuilder("en")

	assert.Equal(t, "Task overdue", b.Build(domain.EventTaskOverdue, nil).Title)
	// No English mention template; the Russian one is used.
	assert.Equal(t, "Вас упомянули", b.Build(domain.EventMentioned, nil).Title)
}

func TestInterpolate(t *testing.T) {
	payload := domain.Payload{"a": "1", "n": 2.5, "nil": nil}

	assert.Equal(t, "1-2.5--{A}", Interpolate("{a}-{n}-{nil}-{A}", payload))
	assert.Equal(t, "plain", Interpolate("plain", payload))
}

func TestActionURL(t *testing.T) {
	assert.Nil(t, ActionURL(nil))

	url := ActionURL(domain.Payload{"action_url": "/deals/7", "task_id": "1"})
	require.NotNil(t, url)
	assert.Equal(t, "/deals/7", *url)

	url = ActionURL(domain.Payload{"action_url": "https://evil.example", "task_id": "1"})
	require.NotNil(t, url)
	assert.Equal(t, "/tasks/1", *url)

	for _, external := range []string{"//evil.example", "/\\evil.example"} {
		url = ActionURL(domain.Payload{"action_url": external, "task_id": "1"})
		require.NotNil(t, url, external)
		assert.Equal(t, "/tasks/1", *url, external)
	}

	assert.Nil(t, ActionURL(domain.Payload{"action_url": "//evil.example"}))
	url = ActionURL(domain.Payload{"action_url": "/"})
	require.NotNil(t, url)
	assert.Equal(t, "/", *url)
}
