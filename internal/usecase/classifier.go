package usecase

import (
	"strings"

	"wisdom-core/internal/domain/entity"
)

type categoryRule struct {
	category entity.Category
	keywords []string
}

// categoryRules is checked in order; the first rule with any keyword wins.
// Keywords match as substrings of the lower-cased question.
var categoryRules = []categoryRule{
	{entity.CategoryRelationships, []string{
		"relationship", "partner", "marriage", "married", "husband", "wife",
		"boyfriend", "girlfriend", "love", "breakup", "break up", "divorce",
		"family", "friend", "dating", "crush", "parents",
	}},
	{entity.CategoryCareer, []string{
		"job", "career", "work", "boss", "office", "promotion", "interview",
		"business", "salary", "colleague", "profession", "employ",
	}},
	{entity.CategoryHealth, []string{
		"health", "sick", "illness", "disease", "pain", "doctor", "body",
		"weight", "sleep", "tired", "exercise", "diet",
	}},
	{entity.CategorySpirituality, []string{
		"god", "spiritual", "soul", "prayer", "pray", "meditat", "karma",
		"dharma", "faith", "divine", "temple", "mantra", "moksha",
	}},
	{entity.CategoryAnxiety, []string{
		"anxiety", "anxious", "worried", "worry", "stress", "fear", "panic",
		"nervous", "overthink", "scared", "afraid",
	}},
	{entity.CategoryPurpose, []string{
		"purpose", "meaning", "direction", "goal", "destiny", "calling",
		"lost", "why am i", "what should i do with my life",
	}},
	{entity.CategoryHappiness, []string{
		"happy", "happiness", "joy", "sad", "depress", "lonely", "unhappy",
		"peace", "content",
	}},
}

// Classify maps a free-text question onto a category. Questions that hit
// keywords of several categories resolve to whichever rule comes first.
func Classify(question string) entity.Category {
	normalized := strings.ToLower(question)
	for _, rule := range categoryRules {
		if containsAnyKeyword(normalized, rule.keywords) {
			return rule.category
		}
	}
	return entity.CategoryDefault
}

func containsAnyKeyword(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
