package article

import (
	"net/url"
	"strings"

	"github.com/magabrotheeeer/article-insights/internal/models"
)

const (
	maxTitleLength    = 200
	textTitleLength   = 100
	urlTitlePrefixLen = 60
)

// deriveTitle выбирает заголовок записи истории: извлечённый со страницы,
// иначе построенный из адреса или из начала текста.
func deriveTitle(kind models.InputKind, input, text, extracted string) string {
	title := strings.TrimSpace(extracted)
	if title == "" {
		switch kind {
		case models.InputURL:
			if u, err := url.Parse(input); err == nil && u.Hostname() != "" {
				title = strings.TrimPrefix(u.Hostname(), "www.") + " - " + prefix(input, urlTitlePrefixLen)
			} else {
				title = prefix(input, textTitleLength)
			}
		default:
			head := []rune(text)
			cut := len(head) >= textTitleLength
			if cut {
				head = head[:textTitleLength]
			}
			title = strings.TrimSpace(strings.ReplaceAll(string(head), "\n", " "))
			if cut {
				title += "..."
			}
		}
	}

	if strings.TrimSpace(title) == "" {
		if kind == models.InputURL {
			return "Article"
		}
		return "Text Article"
	}
	if r := []rune(title); len(r) > maxTitleLength {
		title = string(r[:maxTitleLength]) + "..."
	}
	return title
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
