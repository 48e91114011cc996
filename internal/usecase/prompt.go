package usecase

import (
	"fmt"
	"strings"

	"wisdom-core/internal/domain/entity"
)

const promptTemplate = `You are a compassionate spiritual guide rooted in timeless wisdom traditions.
A seeker has brought you a question about %s.

Question: "%s"

Reply with warmth and without judgement. Structure the answer as:
1. A short acknowledgement of what the seeker is feeling.
2. A perspective drawn from spiritual wisdom that reframes the situation.
3. Three practical steps the seeker can take this week.
4. One closing line of encouragement or blessing.

Keep it under 250 words and do not use markdown headings.`

// BuildPrompt renders the LLM instruction for a question.
func BuildPrompt(question string, category entity.Category, language entity.Language) string {
	topic := string(category)
	if category == "" || category == entity.CategoryDefault {
		topic = "life in general"
	}

	prompt := fmt.Sprintf(promptTemplate, topic, strings.TrimSpace(question))
	if language != "" && language != entity.LanguageEnglish {
		prompt += fmt.Sprintf("\n\nPlease respond entirely in %s.", language.DisplayName())
	}
	return prompt
}
