// Package store — долговременное хранение документов-снимков.
// Хранилище ничего не знает о задачах: документ для него непрозрачный
// сериализуемый объект, каждый Save заменяет документ целиком.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("document not found")

type Store interface {
	// Load читает документ целиком; ErrNotFound, если документ ещё не записывался
	Load(ctx context.Context, doc string, v any) error
	// Save заменяет документ целиком; при ошибке прежнее
	// сохранённое значение остаётся нетронутым
	Save(ctx context.Context, doc string, v any) error
}
