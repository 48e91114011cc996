package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Category is the topical bucket a question is answered under.
type Category string

const (
	CategoryRelationships Category = "relationships"
	CategoryCareer        Category = "career"
	CategoryHealth        Category = "health"
	CategorySpirituality  Category = "spirituality"
	CategoryAnxiety       Category = "anxiety"
	CategoryPurpose       Category = "purpose"
	CategoryHappiness     Category = "happiness"
	CategoryDefault       Category = "default"
)

// Categories lists every category, default last.
var Categories = []Category{
	CategoryRelationships,
	CategoryCareer,
	CategoryHealth,
	CategorySpirituality,
	CategoryAnxiety,
	CategoryPurpose,
	CategoryHappiness,
	CategoryDefault,
}

// ParseCategory returns the matching category, or "" when s names none of them.
// An empty result means the caller should classify the question itself.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return ""
}

// Language selects the reply language and the fallback text set.
type Language string

const (
	LanguageEnglish Language = "english"
	LanguageHindi   Language = "hindi"
	LanguageSpanish Language = "spanish"
	LanguageFrench  Language = "french"
)

var languageCodes = map[string]Language{
	"en": LanguageEnglish,
	"hi": LanguageHindi,
	"es": LanguageSpanish,
	"fr": LanguageFrench,
}

// ParseLanguage lower-cases s and maps ISO codes to language names.
// Empty input yields english; unknown names are kept as given.
func ParseLanguage(s string) Language {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return LanguageEnglish
	}
	if l, ok := languageCodes[v]; ok {
		return l
	}
	return Language(v)
}

// DisplayName is the capitalised language name used inside prompts.
func (l Language) DisplayName() string {
	if l == "" {
		return "English"
	}
	s := string(l)
	return strings.ToUpper(s[:1]) + s[1:]
}

// WisdomRequest is one user submission. It lives for a single round trip.
type WisdomRequest struct {
	Question string   `json:"question"`
	Category Category `json:"category"`
	Language Language `json:"language"`
}

// CacheKey is the "<category>_<language>" key of the side-channel cache table.
func (r WisdomRequest) CacheKey() string {
	return string(r.Category) + "_" + string(r.Language)
}

// QuestionDigest identifies the question independent of case and spacing.
func (r WisdomRequest) QuestionDigest() string {
	normalized := strings.ToLower(strings.Join(strings.Fields(r.Question), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}

// Source names the tier that produced an answer.
type Source string

const (
	SourceCache    Source = "cache"
	SourceRemote   Source = "remote"
	SourceDirect   Source = "direct"
	SourceFallback Source = "fallback"
)

// WisdomResponse carries the answer plus the flags the UI uses for its
// degraded-mode banners.
type WisdomResponse struct {
	Answer          string   `json:"answer"`
	IsFallback      bool     `json:"isFallback"`
	IsNetworkIssue  bool     `json:"isNetworkIssue"`
	IsApiKeyIssue   bool     `json:"isApiKeyIssue"`
	IsDirectApiUsed bool     `json:"isDirectApiUsed"`
	ErrorDetails    string   `json:"errorDetails,omitempty"`
	Category        Category `json:"category"`
	Language        Language `json:"language"`
	Source          Source   `json:"source"`
	Cached          bool     `json:"cached"`
}
