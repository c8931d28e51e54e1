package models

import (
	"fmt"
	"time"
)

// InputKind — способ, которым пользователь передал статью.
type InputKind string

const (
	InputURL  InputKind = "url"
	InputText InputKind = "text"
)

// ParseInputKind разбирает строковое значение способа ввода.
func ParseInputKind(s string) (InputKind, error) {
	switch k := InputKind(s); k {
	case InputURL, InputText:
		return k, nil
	default:
		return "", fmt.Errorf("unknown input kind %q", s)
	}
}

// StyleTag — стиль аналитического комментария.
type StyleTag string

const (
	StyleWarmBookish    StyleTag = "warmBookish"
	StyleLifeReflection StyleTag = "lifeReflection"
	StyleContrarian     StyleTag = "contrarian"
	StyleEducation      StyleTag = "education"
	StyleScience        StyleTag = "science"
)

// DefaultStyle используется, когда стиль не указан в запросе.
const DefaultStyle = StyleWarmBookish

// Valid сообщает, входит ли стиль в поддерживаемый набор.
func (s StyleTag) Valid() bool {
	switch s {
	case StyleWarmBookish, StyleLifeReflection, StyleContrarian, StyleEducation, StyleScience:
		return true
	}
	return false
}

// ArticleRecord — сохранённый результат обработки статьи.
type ArticleRecord struct {
	ID                string    `json:"id"`
	AccountID         string    `json:"userId"`
	Title             string    `json:"title"`
	OriginalContent   string    `json:"originalContent"`
	TranslatedContent string    `json:"translatedContent"`
	Commentary        string    `json:"insights"`
	InputKind         InputKind `json:"inputType"`
	SourceURL         *string   `json:"sourceUrl,omitempty"`
	Style             StyleTag  `json:"style"`
	TokensUsed        int64     `json:"tokensUsed"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ArticleSummary — проекция записи истории для списка, без текстов.
type ArticleSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	InputKind  InputKind `json:"inputType"`
	SourceURL  *string   `json:"sourceUrl,omitempty"`
	Style      StyleTag  `json:"style"`
	TokensUsed int64     `json:"tokensUsed"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Extraction содержит текст, извлечённый со страницы.
type Extraction struct {
	Content              string
	Title                string
	RequiresSubscription bool
}
