// Package password хеширует и проверяет пароли учётных записей через bcrypt.
// Учётные записи, созданные через OAuth, хранят пустой хеш и не могут войти по паролю.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrNoPassword возвращается, если у учётной записи не задан пароль.
var ErrNoPassword = errors.New("account has no password")

// Hash возвращает bcrypt-хеш пароля.
func Hash(password string) (string, error) {
	const op = "password.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Compare сверяет сохранённый хеш с введённым паролем.
// Возвращает nil при совпадении.
func Compare(storedHash, candidate string) error {
	const op = "password.Compare"
	if storedHash == "" {
		return fmt.Errorf("%s: %w", op, ErrNoPassword)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(candidate)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
