// Package remote — граница с внешним сервисом учёта задач.
// Оркестратор никогда не предполагает его доступность: любой сбой
// здесь деградирует до устаревания данных, но не до потери локальной записи.
package remote

import (
	"context"
	"errors"
	"fmt"

	"taskSync/internal/models/task"
)

type ErrorKind string

const ErrUnauthenticated ErrorKind = "unauthenticated"
const ErrNotConfigured ErrorKind = "not_configured"
const ErrNotFound ErrorKind = "not_found"
const ErrRateLimited ErrorKind = "rate_limited"
const ErrTimeout ErrorKind = "timeout"
const ErrUnknown ErrorKind = "unknown"

type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote %s: %s: %s", e.Kind, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("remote %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf вытаскивает вид удалённой ошибки; не-удалённые ошибки считаются unknown
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ErrUnknown
}

// Retryable — сбой предположительно временный, запись остаётся в наборе
// повторной отправки; unauthenticated и not_found требуют вмешательства
func Retryable(err error) bool {
	switch KindOf(err) {
	case ErrUnauthenticated, ErrNotFound:
		return false
	default:
		return true
	}
}

// Client — узкий контракт удалённой стороны: четыре операции,
// все сбои типизированы
type Client interface {
	FetchTasks(ctx context.Context) ([]*task.Task, error)
	CreateTask(ctx context.Context, payload task.NewTaskPayload) (*task.Task, error)
	UpdateTask(ctx context.Context, id string, patch task.Patch) (*task.Task, error)
	FetchStatusOptions(ctx context.Context) ([]task.StatusOption, error)
}
