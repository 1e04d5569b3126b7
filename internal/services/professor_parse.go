package services

import (
	"regexp"
	"strings"
)

// Sentinel outputs for the parse ladder and the generation failure paths.
// Callers always receive a well-formed question/answer pair, never a fault.
const (
	ParseFailedQuestion = "Failed to parse question."
	ParseFailedAnswer   = "Consult source material."

	BusyQuestion = "The professor is busy right now. Please try again in a moment."
	BusyAnswer   = "Generation was rate limited; no answer is available."

	UnavailableQuestion = "The professor could not be reached. Please try again later."
	UnavailableAnswer   = "Generation failed; no answer is available."

	NoMaterialQuestion = "No course material is available to ask about yet."
)

var (
	questionLabelRe = regexp.MustCompile(`(?i)[*_#]*\b(?:question|q)\b[*_]*\s*:[*_]*`)
	answerLabelRe   = regexp.MustCompile(`(?i)[*_#]*\b(?:ideal\s+answer|answer|a)\b[*_]*\s*:[*_]*`)
	emphasisRe      = regexp.MustCompile(`[*_]{1,3}`)
	numericRefRe    = regexp.MustCompile(`(?i)\(?\s*(?:pages?|pg\.?|p\.|pp\.|lines?|sections?|§)\s*\d+(?:\s*[-–.]\s*\d+)*\s*\)?`)
)

// parseQuestionAnswer extracts the (question, ideal answer) pair from raw
// generation output. Layered fallback: labeled extraction tolerating
// markdown emphasis and label variants, then split on the first question
// mark, then a sentinel pair.
func parseQuestionAnswer(text string) (string, string) {
	qLoc := questionLabelRe.FindStringIndex(text)
	if qLoc != nil {
		rest := text[qLoc[1]:]
		aLoc := answerLabelRe.FindStringIndex(rest)
		if aLoc != nil {
			q := cleanSegment(rest[:aLoc[0]])
			a := cleanSegment(rest[aLoc[1]:])
			if q != "" && a != "" {
				return q, a
			}
		}
	}

	if idx := strings.Index(text, "?"); idx >= 0 {
		q := cleanSegment(text[:idx+1])
		a := cleanSegment(text[idx+1:])
		if a == "" {
			a = ParseFailedAnswer
		}
		if q != "" {
			return q, a
		}
	}

	return ParseFailedQuestion, ParseFailedAnswer
}

// cleanSegment strips markdown emphasis markers and surrounding noise from
// an extracted segment.
func cleanSegment(s string) string {
	s = emphasisRe.ReplaceAllString(s, "")
	return strings.Trim(strings.TrimSpace(s), "\"` \n")
}

// stripNumericRefs removes page/section/line number references so emitted
// questions never leak source coordinates to students.
func stripNumericRefs(s string) string {
	s = numericRefRe.ReplaceAllString(s, "")
	s = regexp.MustCompile(`\s{2,}`).ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
