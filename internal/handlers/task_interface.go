package handlers

import "context"
import "taskSync/internal/models/task"

type TaskService interface {
	GetTasks(context.Context) ([]*task.Task, error)
	GetTask(string) (*task.Task, bool)
	AddTask(context.Context, task.NewTaskPayload) (*task.Task, error)
	UpdateTask(context.Context, string, task.Patch) (*task.Task, error)
	DeleteTask(context.Context, string) (bool, error)
	Pending() []*task.Task
	Resync(context.Context, int) int
	GetStatusOptions(context.Context) ([]task.StatusOption, error)
	Subscribe() (int, <-chan *task.Task)
	Unsubscribe(int)
}
