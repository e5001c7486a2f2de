package task

import "time"

// NewTaskPayload — данные создания задачи; служебные поля
// (id, sync_status, local_only) назначает репозиторий
type NewTaskPayload struct {
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
}

// FromPayload собирает новую запись без служебных полей
func FromPayload(p NewTaskPayload) *Task {
	t := &Task{
		Title:            p.Title,
		Status:           p.Status,
		NormalizedStatus: p.NormalizedStatus,
		HardDeadline:     p.HardDeadline,
		Urgent:           p.Urgent,
		Important:        p.Important,
		MainEntry:        p.MainEntry,
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.DueDateEnd != nil {
		d := *p.DueDateEnd
		t.DueDateEnd = &d
	}
	if p.ProjectIDs != nil {
		t.ProjectIDs = append([]string(nil), p.ProjectIDs...)
	}
	if p.ParentTaskID != nil {
		s := *p.ParentTaskID
		t.ParentTaskID = &s
	}
	return t
}

// PayloadOf восстанавливает payload из записи — нужно воркеру повторной
// отправки, когда исходный payload уже не сохранён
func PayloadOf(t *Task) NewTaskPayload {
	p := NewTaskPayload{
		Title:            t.Title,
		Status:           t.Status,
		NormalizedStatus: t.NormalizedStatus,
		HardDeadline:     t.HardDeadline,
		Urgent:           t.Urgent,
		Important:        t.Important,
		MainEntry:        t.MainEntry,
	}
	if t.DueDate != nil {
		d := *t.DueDate
		p.DueDate = &d
	}
	if t.DueDateEnd != nil {
		d := *t.DueDateEnd
		p.DueDateEnd = &d
	}
	if t.ProjectIDs != nil {
		p.ProjectIDs = append([]string(nil), t.ProjectIDs...)
	}
	if t.ParentTaskID != nil {
		s := *t.ParentTaskID
		p.ParentTaskID = &s
	}
	return p
}
