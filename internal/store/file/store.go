package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"taskSync/internal/logger"
	"taskSync/internal/store"
)

// Storage хранит каждый логический документ в отдельном json-файле
// внутри каталога данных
type Storage struct {
	dir string
}

func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("создание каталога данных: %w", err)
	}
	logger.Info("Store: Файловое хранилище готово")
	return &Storage{dir: dir}, nil
}

func (s *Storage) path(doc string) string {
	return filepath.Join(s.dir, doc+".json")
}

func (s *Storage) Load(ctx context.Context, doc string, v any) error {
	data, err := os.ReadFile(s.path(doc))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store.ErrNotFound
		}
		return fmt.Errorf("чтение документа %s: %w", doc, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("разбор документа %s: %w", doc, err)
	}
	return nil
}

// Save пишет во временный файл и атомарно переименовывает — прерванная
// запись не портит прежнее сохранённое значение
func (s *Storage) Save(ctx context.Context, doc string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("сериализация документа %s: %w", doc, err)
	}

	tmp := filepath.Join(s.dir, fmt.Sprintf(".tmp-%s-%d", doc, time.Now().UnixNano()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("запись документа %s: %w", doc, err)
	}
	// Rename атомарен в пределах одной файловой системы
	if err := os.Rename(tmp, s.path(doc)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("замена документа %s: %w", doc, err)
	}
	return nil
}
