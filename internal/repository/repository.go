package repository

import (
	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	Notification NotificationRepository
	Preference   PreferenceRepository
	Reminder     ReminderRepository
	User         UserRepository
	Task         TaskRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Notification: NewNotificationRepository(db),
		Preference:   NewPreferenceRepository(db),
		Reminder:     NewReminderRepository(db),
		User:         NewUserRepository(db),
		Task:         NewTaskRepository(db),
	}
}
