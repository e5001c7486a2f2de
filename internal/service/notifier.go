package service

import (
	"sync"

	"taskSync/internal/logger"
	"taskSync/internal/models/task"

	"go.uber.org/zap"
)

// Notifier раздаёт подписчикам свежую версию задачи при любом изменении:
// локальная запись, слияние или подтверждение удалённой стороной.
// Все публикации приходят из сериализованных секций, поэтому история
// одной задачи доставляется по порядку; медленный подписчик теряет
// событие, но движок никогда не блокируется на доставке.
type Notifier struct {
	mtx    sync.RWMutex
	nextID int
	subs   map[int]chan *task.Task
	buffer int
}

func NewNotifier(buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 16
	}
	return &Notifier{
		subs:   make(map[int]chan *task.Task),
		buffer: buffer,
	}
}

func (n *Notifier) Subscribe() (int, <-chan *task.Task) {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	n.nextID++
	ch := make(chan *task.Task, n.buffer)
	n.subs[n.nextID] = ch
	return n.nextID, ch
}

func (n *Notifier) Unsubscribe(id int) {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	if ch, ok := n.subs[id]; ok {
		delete(n.subs, id)
		close(ch)
	}
}

func (n *Notifier) Publish(t *task.Task) {
	n.mtx.RLock()
	defer n.mtx.RUnlock()

	for id, ch := range n.subs {
		select {
		case ch <- t.Clone():
		default:
			logger.Warn("Service: Подписчик не успевает, событие пропущено",
				zap.Int("subscriber", id),
				zap.String("task_id", t.ID),
			)
		}
	}
}

func (n *Notifier) Close() {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}
