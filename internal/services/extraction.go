package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
)

// ExtractionService turns a source document into the ordered chapter tree
// that ingestion persists. Implementations must return an error (and no
// chapters) when nothing could be extracted; ingestion aborts on that.
type ExtractionService interface {
	Extract(ctx context.Context, filePath string) ([]ExtractedChapter, error)
}

type ExtractedChapter struct {
	Title    string
	Order    int
	Sections []ExtractedSection
}

type ExtractedSection struct {
	Title       string
	Order       int
	Subsections []ExtractedSubsection
}

type ExtractedSubsection struct {
	Title   string
	Order   int
	Content string
}

const (
	pagesPerChapter = 5
	linesPerPage    = 40
)

type textExtractionService struct {
	log *logger.Logger
}

// NewTextExtractionService reads plain-text exports. Pages are form-feed
// separated when the exporter emits them, otherwise fixed line-count groups;
// every five pages become one logical chapter.
func NewTextExtractionService(baseLog *logger.Logger) ExtractionService {
	return &textExtractionService{log: baseLog.With("service", "TextExtractionService")}
}

func (s *textExtractionService) Extract(ctx context.Context, filePath string) ([]ExtractedChapter, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}
	pages := splitPages(string(raw))
	if len(pages) == 0 {
		return nil, fmt.Errorf("no text extracted from %s", filePath)
	}
	s.log.Info("source text extracted", "file", filePath, "pages", len(pages))

	var chapters []ExtractedChapter
	for start := 0; start < len(pages); start += pagesPerChapter {
		end := start + pagesPerChapter
		if end > len(pages) {
			end = len(pages)
		}
		chapNum := (start / pagesPerChapter) + 1
		content := strings.Join(pages[start:end], "\n\n")

		chapters = append(chapters, ExtractedChapter{
			Title: fmt.Sprintf("Chapter %d (Pages %d-%d)", chapNum, start+1, end),
			Order: chapNum,
			Sections: []ExtractedSection{{
				Title: fmt.Sprintf("Section %d.1", chapNum),
				Order: 1,
				Subsections: []ExtractedSubsection{{
					Title:   fmt.Sprintf("Content Block %d.1.1", chapNum),
					Order:   1,
					Content: content,
				}},
			}},
		})
	}
	s.log.Info("syllabus mapped", "pages", len(pages), "chapters", len(chapters))
	return chapters, nil
}

func splitPages(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if strings.Contains(text, "\f") {
		var pages []string
		for _, p := range strings.Split(text, "\f") {
			if strings.TrimSpace(p) != "" {
				pages = append(pages, strings.TrimSpace(p))
			}
		}
		return pages
	}

	lines := strings.Split(text, "\n")
	var pages []string
	for start := 0; start < len(lines); start += linesPerPage {
		end := start + linesPerPage
		if end > len(lines) {
			end = len(lines)
		}
		page := strings.TrimSpace(strings.Join(lines[start:end], "\n"))
		if page != "" {
			pages = append(pages, page)
		}
	}
	return pages
}
