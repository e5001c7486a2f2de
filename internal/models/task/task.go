package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Status           string     `json:"status"`
	NormalizedStatus string     `json:"normalized_status"`
	DueDate          *time.Time `json:"due_date"`
	DueDateEnd       *time.Time `json:"due_date_end"`
	HardDeadline     bool       `json:"hard_deadline"`
	Urgent           bool       `json:"urgent"`
	Important        bool       `json:"important"`
	MainEntry        bool       `json:"main_entry"`
	ProjectIDs       []string   `json:"project_ids"`
	ParentTaskID     *string    `json:"parent_task_id"`
	CreatedAt        time.Time  `json:"created_at"`
	LastEdited       time.Time  `json:"last_edited"`
	SyncStatus       SyncStatus `json:"sync_status"`
	LocalOnly        bool       `json:"local_only"`
}

type SyncStatus string

// состояния синхронизации: local -> pending -> synced, error из любого
const SyncLocal SyncStatus = "local"
const SyncPending SyncStatus = "pending"
const SyncSynced SyncStatus = "synced"
const SyncError SyncStatus = "error"

// Unsynced — запись ещё не подтверждена удалённой стороной
// и входит в набор повторной отправки
func (s SyncStatus) Unsynced() bool {
	return s == SyncLocal || s == SyncPending
}

type StatusOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// LocalIDPrefix помечает идентификаторы, выданные локально до
// подтверждения создания удалённой стороной
const LocalIDPrefix = "local-"

// NewLocalID собирает локальный id из времени создания и случайного суффикса,
// время в начале даёт сортировку по дате создания
func NewLocalID(now time.Time) string {
	return fmt.Sprintf("%s%d-%s", LocalIDPrefix, now.UnixMilli(), uuid.NewString()[:8])
}

func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// Clone возвращает глубокую копию записи, чтобы вызывающий код
// не мог изменить каноническое состояние репозитория
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.DueDateEnd != nil {
		d := *t.DueDateEnd
		c.DueDateEnd = &d
	}
	if t.ParentTaskID != nil {
		p := *t.ParentTaskID
		c.ParentTaskID = &p
	}
	if t.ProjectIDs != nil {
		c.ProjectIDs = append([]string(nil), t.ProjectIDs...)
	}
	return &c
}

// CopyDomainFrom переносит доменные поля целиком, без пополевого слияния.
// Служебные поля (ID, CreatedAt, SyncStatus, LocalOnly) не трогает.
func (t *Task) CopyDomainFrom(src *Task) {
	t.Title = src.Title
	t.Status = src.Status
	t.NormalizedStatus = src.NormalizedStatus
	t.DueDate = nil
	if src.DueDate != nil {
		d := *src.DueDate
		t.DueDate = &d
	}
	t.DueDateEnd = nil
	if src.DueDateEnd != nil {
		d := *src.DueDateEnd
		t.DueDateEnd = &d
	}
	t.HardDeadline = src.HardDeadline
	t.Urgent = src.Urgent
	t.Important = src.Important
	t.MainEntry = src.MainEntry
	t.ProjectIDs = nil
	if src.ProjectIDs != nil {
		t.ProjectIDs = append([]string(nil), src.ProjectIDs...)
	}
	t.ParentTaskID = nil
	if src.ParentTaskID != nil {
		p := *src.ParentTaskID
		t.ParentTaskID = &p
	}
	t.LastEdited = src.LastEdited
}
