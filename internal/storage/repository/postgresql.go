// Package repository реализует хранилище учётных записей и истории статей
// на PostgreSQL. Ошибки драйвера приводятся к категориям apperr:
// отсутствие строки и некорректный uuid в параметре дают NotFound, отсутствие
// таблицы StorageNotProvisioned, нарушение уникальности Conflict, остальные
// сбои StorageUnavailable.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// Ping проверяет доступность базы данных.
func (s *Storage) Ping(ctx context.Context) error {
	if err := s.DB.PingContext(ctx); err != nil {
		return apperr.Wrap(apperr.StorageUnavailable, "database unavailable", err)
	}
	return nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// mapError приводит ошибку драйвера к категории apperr.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Wrap(apperr.NotFound, "record not found", fmt.Errorf("%s: %w", op, err))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UndefinedTable:
			return apperr.Wrap(apperr.StorageNotProvisioned, "database schema is not set up", fmt.Errorf("%s: %w", op, err))
		case pgerrcode.UniqueViolation:
			return apperr.Wrap(apperr.Conflict, "record already exists", fmt.Errorf("%s: %w", op, err))
		case pgerrcode.InvalidTextRepresentation:
			return apperr.Wrap(apperr.NotFound, "record not found", fmt.Errorf("%s: %w", op, err))
		}
	}
	return apperr.Wrap(apperr.StorageUnavailable, "database unavailable", fmt.Errorf("%s: %w", op, err))
}

func checkContext(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
		return nil
	}
}
