package services

import (
	"strings"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
)

// Theme is an inferred author/theme label for a piece of material, used by
// the planner's diversity tie-break.
type Theme struct {
	Tag        string
	Confidence float64
}

const ThemeUnknown = "unknown"

// ThemeClassifier infers the theme of a text. The matching strategy
// (substring, embedding-based, model-based) is swappable behind this
// interface without touching planner or orchestrator logic.
type ThemeClassifier interface {
	Classify(text string) Theme
}

// ThemeRule maps a tag to the keywords that signal it. Rules are evaluated
// in order, so earlier tags win ties.
type ThemeRule struct {
	Tag      string
	Keywords []string
}

type keywordClassifier struct {
	log   *logger.Logger
	rules []ThemeRule
}

// NewKeywordClassifier matches case-insensitive keywords against the first
// 500 characters of the text.
func NewKeywordClassifier(baseLog *logger.Logger, rules []ThemeRule) ThemeClassifier {
	return &keywordClassifier{
		log:   baseLog.With("service", "KeywordClassifier"),
		rules: rules,
	}
}

const classifyWindow = 500

func (s *keywordClassifier) Classify(text string) Theme {
	window := text
	if len(window) > classifyWindow {
		window = window[:classifyWindow]
	}
	window = strings.ToLower(window)

	for _, rule := range s.rules {
		for _, kw := range rule.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(window, strings.ToLower(kw)) {
				return Theme{Tag: rule.Tag, Confidence: 1}
			}
		}
	}
	return Theme{Tag: ThemeUnknown, Confidence: 0}
}
