// Package smtp доставляет письма уведомлений через SMTP-сервер с STARTTLS.
package smtp

import "io"

// Client повторяет используемую часть *smtp.Client.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer открывает авторизованную сессию и знает адрес отправителя.
type Dialer interface {
	Connect() (Client, error)
	From() string
}
