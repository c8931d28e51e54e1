package generation

import (
	"fmt"

	"github.com/magabrotheeeer/article-insights/internal/models"
)

func translationPrompt(language string) string {
	return fmt.Sprintf(`You are a professional multilingual translator.

Your task:
- Translate the provided content into %s
- Preserve meaning, tone and structure
- Keep paragraph breaks, headings and quotes
- Do NOT summarize or add commentary
- Do NOT omit information

Output ONLY the translated text.`, language)
}

const commentaryRequest = `Based on the following translated article, provide:

1. A concise summary (3-5 bullet points)
2. Key takeaways
3. Context and interpretation (why it matters)
4. Any relevant background or implications

Translated article:
`

var styleVoices = map[models.StyleTag]string{
	models.StyleWarmBookish: "You write like a warm, well-read essayist. Connect the article to books, " +
		"history and ideas, and keep the tone gentle and reflective.",
	models.StyleLifeReflection: "You write like a thoughtful columnist. Relate the article to everyday life, " +
		"personal choices and what readers can take away for themselves.",
	models.StyleContrarian: "You write like a sharp contrarian critic. Question the article's assumptions, " +
		"surface counterarguments and point out what it leaves unsaid.",
	models.StyleEducation: "You write like a patient teacher. Explain key concepts and terminology step by step " +
		"so that a curious student can follow.",
	models.StyleScience: "You write like a science journalist. Focus on evidence, methods and data, " +
		"and separate established findings from speculation.",
}

func commentaryPrompt(style models.StyleTag, language string) string {
	voice, ok := styleVoices[style]
	if !ok {
		voice = styleVoices[models.DefaultStyle]
	}
	return fmt.Sprintf(`You are an expert analyst and editor writing for readers of %s.
%s

Your task:
- Analyze the translated article
- Explain why this article matters
- Add context a reader may not know
- Do NOT repeat the full article

Write in %s and structure your response using clear sections.`, language, voice, language)
}
