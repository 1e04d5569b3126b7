package app

import (
	"strings"

	"github.com/quizforge/quizforge-backend/internal/platform/envutil"
	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/services"
)

type Config struct {
	MergeThreshold  int
	CoverageCeiling int
	RetrieveTopK    int
	EmbedFanout     int
	IndexPath       string
	IndexDim        int
	ThemeRules      []services.ThemeRule
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		MergeThreshold:  envutil.Int("CHUNK_MERGE_THRESHOLD", services.DefaultMergeThreshold),
		CoverageCeiling: envutil.Int("TOPIC_COVERAGE_CEILING", services.DefaultCoverageCeiling),
		RetrieveTopK:    envutil.Int("RETRIEVE_TOP_K", 5),
		EmbedFanout:     envutil.Int("EMBED_FANOUT", 4),
		IndexPath:       envutil.String("VECTOR_INDEX_PATH", "data/index.gob"),
		IndexDim:        envutil.Int("EMBED_DIM", 3584),
		ThemeRules:      loadThemeRules(log),
	}
}

// loadThemeRules parses THEME_RULES, formatted as
// "tag1:kw1|kw2;tag2:kw3". Empty means every chunk classifies as unknown
// and the planner's diversity tie-break becomes a no-op.
func loadThemeRules(log *logger.Logger) []services.ThemeRule {
	raw := envutil.String("THEME_RULES", "")
	if raw == "" {
		return nil
	}
	var rules []services.ThemeRule
	for _, entry := range strings.Split(raw, ";") {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			log.Warn("skipping malformed theme rule", "entry", entry)
			continue
		}
		rules = append(rules, services.ThemeRule{
			Tag:      strings.TrimSpace(parts[0]),
			Keywords: strings.Split(parts[1], "|"),
		})
	}
	return rules
}
