package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/repos"
	"github.com/quizforge/quizforge-backend/internal/types"
)

const (
	DefaultCoverageCeiling = 20
	// RecencyWindow is how many of the most recent generations a caller
	// should feed back as RecentSubsectionIDs.
	RecencyWindow = 3
)

// SelectOptions tune one planning decision. All fields are optional.
type SelectOptions struct {
	// FilterKeywords restrict candidates to subsections whose chapter,
	// section, or subsection title contains any keyword (case-insensitive).
	FilterKeywords []string
	// RecentSubsectionIDs are excluded while alternatives exist.
	RecentSubsectionIDs []uuid.UUID
	// RecentThemes steer the diversity tie-break away from themes the
	// conversation just covered.
	RecentThemes []string
	// UsedChunkIDs are never offered again as the candidate chunk.
	UsedChunkIDs []uuid.UUID
	// SessionMode bypasses the coverage ceiling: just-in-time generation
	// must not stall because the static pool is exhausted.
	SessionMode bool
	// Deterministic picks the first candidate in syllabus order instead of
	// a uniformly random one. Pool generation wants reproducibility; live
	// simulation wants variety.
	Deterministic bool
}

// Selection is one planning decision: the subsection to probe, a MEDIUM
// candidate chunk within it, and the chunk's inferred theme.
type Selection struct {
	Subsection *types.Subsection
	Chunk      *types.Chunk
	Theme      string
}

// TopicPlanner layers the filter, coverage, recency, and diversity policies
// into a single decision per turn. It always terminates: when no subsection
// is eligible it reports no candidate rather than retrying.
type TopicPlanner interface {
	SelectNextTopic(ctx context.Context, courseID uuid.UUID, opts SelectOptions) (*Selection, error)
}

type topicPlanner struct {
	log             *logger.Logger
	hierarchy       repos.HierarchyRepo
	chunks          repos.ChunkRepo
	questions       repos.QuestionRepo
	classifier      ThemeClassifier
	coverageCeiling int
}

func NewTopicPlanner(baseLog *logger.Logger, hierarchy repos.HierarchyRepo, chunks repos.ChunkRepo, questions repos.QuestionRepo, classifier ThemeClassifier, coverageCeiling int) TopicPlanner {
	if coverageCeiling <= 0 {
		coverageCeiling = DefaultCoverageCeiling
	}
	return &topicPlanner{
		log:             baseLog.With("service", "TopicPlanner"),
		hierarchy:       hierarchy,
		chunks:          chunks,
		questions:       questions,
		classifier:      classifier,
		coverageCeiling: coverageCeiling,
	}
}

type plannerCandidate struct {
	subsection *types.Subsection
	chunk      *types.Chunk
	theme      string
}

func (s *topicPlanner) SelectNextTopic(ctx context.Context, courseID uuid.UUID, opts SelectOptions) (*Selection, error) {
	chapters, err := s.hierarchy.GetCourseTree(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course tree: %w", err)
	}

	// Policy 1+2: filter by title keywords, then by coverage ceiling. The
	// tree is already in syllabus order, so candidate order is syllabus
	// order throughout.
	var eligible []*types.Subsection
	for _, chapter := range chapters {
		for _, section := range chapter.Sections {
			for _, subsection := range section.Subsections {
				titleContext := chapter.Title + " " + section.Title + " " + subsection.Title
				if !matchesKeywords(titleContext, opts.FilterKeywords) {
					continue
				}
				if !opts.SessionMode {
					count, err := s.questions.CountBySubsectionID(ctx, nil, subsection.ID)
					if err != nil {
						return nil, fmt.Errorf("count questions for subsection %s: %w", subsection.ID, err)
					}
					if count >= int64(s.coverageCeiling) {
						continue
					}
				}
				eligible = append(eligible, subsection)
			}
		}
	}
	if len(eligible) == 0 {
		s.log.Debug("no eligible subsection", "course_id", courseID)
		return nil, nil
	}

	// Policy 3: recency exclusion, falling back to the full set when the
	// exclusion would empty it.
	recent := uuidSet(opts.RecentSubsectionIDs)
	var fresh []*types.Subsection
	for _, sub := range eligible {
		if !recent[sub.ID] {
			fresh = append(fresh, sub)
		}
	}
	if len(fresh) == 0 {
		fresh = eligible
	}

	used := uuidSet(opts.UsedChunkIDs)
	var candidates []plannerCandidate
	for _, sub := range fresh {
		mediums, err := s.chunks.GetBySubsectionID(ctx, nil, sub.ID, types.ChunkMedium)
		if err != nil {
			return nil, fmt.Errorf("load medium chunks for subsection %s: %w", sub.ID, err)
		}
		for _, chunk := range mediums {
			if used[chunk.ID] {
				continue
			}
			candidates = append(candidates, plannerCandidate{
				subsection: sub,
				chunk:      chunk,
				theme:      s.classifier.Classify(chunk.Content).Tag,
			})
		}
	}
	if len(candidates) == 0 {
		s.log.Debug("no candidate chunk", "course_id", courseID)
		return nil, nil
	}

	// Policy 4: diversity tie-break on inferred theme, then deterministic
	// syllabus-order pick or uniform random.
	recentThemes := make(map[string]bool, len(opts.RecentThemes))
	for _, t := range opts.RecentThemes {
		recentThemes[strings.ToLower(t)] = true
	}
	var diverse []plannerCandidate
	for _, c := range candidates {
		if c.theme != ThemeUnknown && !recentThemes[strings.ToLower(c.theme)] {
			diverse = append(diverse, c)
		}
	}
	pool := candidates
	if len(diverse) > 0 {
		pool = diverse
	}

	chosen := pool[0]
	if !opts.Deterministic && len(pool) > 1 {
		chosen = pool[rand.Intn(len(pool))]
	}
	return &Selection{
		Subsection: chosen.subsection,
		Chunk:      chosen.chunk,
		Theme:      chosen.theme,
	}, nil
}

func matchesKeywords(titleContext string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lowered := strings.ToLower(titleContext)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func uuidSet(ids []uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
