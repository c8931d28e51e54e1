// Package sl содержит вспомогательные атрибуты для логгера slog,
// чтобы ошибки и идентификаторы записывались в лог под одинаковыми ключами.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error". Для nil пишется пустая строка.
//
// Пример:
//
//	log.Error("failed to consume tokens", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Account возвращает атрибут с идентификатором учётной записи.
func Account(id string) slog.Attr {
	return slog.String("account_id", id)
}
