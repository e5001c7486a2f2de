package task

import (
	"encoding/json"
	"time"
)

// Nullable отличает отсутствующее в JSON поле от явного null:
// отсутствие — оставить как есть, null — очистить значение
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Valid = false
		var zero T
		n.Value = zero
		return nil
	}
	n.Valid = true
	return json.Unmarshal(b, &n.Value)
}

// NullableOf — установленное значение (для построения патчей в коде)
func NullableOf[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Valid: true, Value: v}
}

// NullableNull — явный null, очищающий поле
func NullableNull[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// Patch — частичное обновление: заполнены только изменяемые поля,
// указатель nil и Nullable{Set:false} означают «не трогать»
type Patch struct {
	Title            *string              `json:"title,omitempty"`
	Status           *string              `json:"status,omitempty"`
	NormalizedStatus *string              `json:"normalized_status,omitempty"`
	DueDate          Nullable[time.Time]  `json:"due_date"`
	DueDateEnd       Nullable[time.Time]  `json:"due_date_end"`
	HardDeadline     *bool                `json:"hard_deadline,omitempty"`
	Urgent           *bool                `json:"urgent,omitempty"`
	Important        *bool                `json:"important,omitempty"`
	MainEntry        *bool                `json:"main_entry,omitempty"`
	ProjectIDs       *[]string            `json:"project_ids,omitempty"`
	ParentTaskID     Nullable[string]     `json:"parent_task_id"`
}

// MarshalJSON сериализует только установленные поля — удалённая сторона
// получает ровно тот же частичный объект, что прислал клиент
func (p Patch) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	if p.Title != nil {
		out["title"] = *p.Title
	}
	if p.Status != nil {
		out["status"] = *p.Status
	}
	if p.NormalizedStatus != nil {
		out["normalized_status"] = *p.NormalizedStatus
	}
	if p.DueDate.Set {
		if p.DueDate.Valid {
			out["due_date"] = p.DueDate.Value
		} else {
			out["due_date"] = nil
		}
	}
	if p.DueDateEnd.Set {
		if p.DueDateEnd.Valid {
			out["due_date_end"] = p.DueDateEnd.Value
		} else {
			out["due_date_end"] = nil
		}
	}
	if p.HardDeadline != nil {
		out["hard_deadline"] = *p.HardDeadline
	}
	if p.Urgent != nil {
		out["urgent"] = *p.Urgent
	}
	if p.Important != nil {
		out["important"] = *p.Important
	}
	if p.MainEntry != nil {
		out["main_entry"] = *p.MainEntry
	}
	if p.ProjectIDs != nil {
		out["project_ids"] = *p.ProjectIDs
	}
	if p.ParentTaskID.Set {
		if p.ParentTaskID.Valid {
			out["parent_task_id"] = p.ParentTaskID.Value
		} else {
			out["parent_task_id"] = nil
		}
	}
	return json.Marshal(out)
}

// Apply накладывает установленные поля патча на запись
func (p Patch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.NormalizedStatus != nil {
		t.NormalizedStatus = *p.NormalizedStatus
	}
	if p.DueDate.Set {
		t.DueDate = nil
		if p.DueDate.Valid {
			d := p.DueDate.Value
			t.DueDate = &d
		}
	}
	if p.DueDateEnd.Set {
		t.DueDateEnd = nil
		if p.DueDateEnd.Valid {
			d := p.DueDateEnd.Value
			t.DueDateEnd = &d
		}
	}
	if p.HardDeadline != nil {
		t.HardDeadline = *p.HardDeadline
	}
	if p.Urgent != nil {
		t.Urgent = *p.Urgent
	}
	if p.Important != nil {
		t.Important = *p.Important
	}
	if p.MainEntry != nil {
		t.MainEntry = *p.MainEntry
	}
	if p.ProjectIDs != nil {
		t.ProjectIDs = append([]string(nil), *p.ProjectIDs...)
	}
	if p.ParentTaskID.Set {
		t.ParentTaskID = nil
		if p.ParentTaskID.Valid {
			s := p.ParentTaskID.Value
			t.ParentTaskID = &s
		}
	}
}

// PatchOf строит полный патч из текущего состояния записи — воркер
// повторной отправки шлёт последнюю локальную версию целиком
func PatchOf(t *Task) Patch {
	p := Patch{
		Title:            &t.Title,
		Status:           &t.Status,
		NormalizedStatus: &t.NormalizedStatus,
		HardDeadline:     &t.HardDeadline,
		Urgent:           &t.Urgent,
		Important:        &t.Important,
		MainEntry:        &t.MainEntry,
	}
	if t.DueDate != nil {
		p.DueDate = NullableOf(*t.DueDate)
	} else {
		p.DueDate = NullableNull[time.Time]()
	}
	if t.DueDateEnd != nil {
		p.DueDateEnd = NullableOf(*t.DueDateEnd)
	} else {
		p.DueDateEnd = NullableNull[time.Time]()
	}
	if t.ProjectIDs != nil {
		ids := append([]string(nil), t.ProjectIDs...)
		p.ProjectIDs = &ids
	}
	if t.ParentTaskID != nil {
		p.ParentTaskID = NullableOf(*t.ParentTaskID)
	} else {
		p.ParentTaskID = NullableNull[string]()
	}
	return p
}
