package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskSync/internal/logger"
	"taskSync/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Storage кладёт каждый логический документ в одну jsonb-строку
// таблицы documents
type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, connString string) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Store: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Store: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		logger.Error("Store: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	query := `CREATE TABLE IF NOT EXISTS documents (
				name text PRIMARY KEY,
				body jsonb NOT NULL,
				updated_at timestamptz NOT NULL DEFAULT now()
			)`
	if _, err := pool.Exec(ctx, query); err != nil {
		logger.Error("Store: Не удалось подготовить таблицу documents", err)
		return nil, fmt.Errorf("подготовка таблицы documents: %w", err)
	}

	logger.Info("Store: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Store: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Store: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Storage) Load(ctx context.Context, doc string, v any) error {
	start := time.Now()

	query := `SELECT body FROM documents WHERE name = $1`

	var body []byte
	err := s.pool.QueryRow(ctx, query, doc).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrNotFound
		}
		logger.Error("Store: Не удалось прочитать документ", err, zap.String("doc", doc))
		return fmt.Errorf("чтение документа %s: %w", doc, err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("разбор документа %s: %w", doc, err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Store: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

// Save — upsert целого документа; прежняя строка заменяется атомарно
func (s *Storage) Save(ctx context.Context, doc string, v any) error {
	start := time.Now()

	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("сериализация документа %s: %w", doc, err)
	}

	query := `INSERT INTO documents (name, body, updated_at)
				VALUES ($1, $2, now())
				ON CONFLICT (name) DO UPDATE
				SET body = EXCLUDED.body, updated_at = now()`

	if _, err := s.pool.Exec(ctx, query, doc, body); err != nil {
		logger.Error("Store: Не удалось сохранить документ", err, zap.String("doc", doc))
		return fmt.Errorf("сохранение документа %s: %w", doc, err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Store: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}
