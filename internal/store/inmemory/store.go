package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"taskSync/internal/store"
)

// Storage держит сериализованные документы в памяти — для тестов
// и запуска без долговременного хранилища
type Storage struct {
	documents map[string][]byte
	mtx       *sync.RWMutex
}

func New() *Storage {
	return &Storage{
		documents: make(map[string][]byte),
		mtx:       &sync.RWMutex{},
	}
}

func (s *Storage) Load(ctx context.Context, doc string, v any) error {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	data, ok := s.documents[doc]
	if !ok {
		return store.ErrNotFound
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("разбор документа %s: %w", doc, err)
	}
	return nil
}

func (s *Storage) Save(ctx context.Context, doc string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("сериализация документа %s: %w", doc, err)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.documents[doc] = data
	return nil
}
