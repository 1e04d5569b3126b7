package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/types"
)

// plannerFixture wires a course tree where every subsection carries one
// MEDIUM chunk whose content equals the subsection title, so tests can
// address chunks by name.
type plannerFixture struct {
	planner   TopicPlanner
	questions *fakeQuestionRepo
	subs      map[string]*types.Subsection
}

func newPlannerFixture(t *testing.T, titles []string, themes map[string]string) *plannerFixture {
	t.Helper()
	hierarchy := newFakeHierarchyRepo()
	chunks := newFakeChunkRepo()
	questions := newFakeQuestionRepo()

	chapter := &types.Chapter{ID: uuid.New(), Title: "Chapter 1", Order: 1}
	section := &types.Section{ID: uuid.New(), ChapterID: chapter.ID, Title: "Section 1.1", Order: 1}
	chapter.Sections = []*types.Section{section}
	hierarchy.tree = []*types.Chapter{chapter}

	subs := make(map[string]*types.Subsection, len(titles))
	for i, title := range titles {
		sub := &types.Subsection{ID: uuid.New(), SectionID: section.ID, Title: title, Order: i + 1}
		section.Subsections = append(section.Subsections, sub)
		subs[title] = sub
		chunks.add(&types.Chunk{
			SubsectionID: sub.ID,
			Content:      title,
			ChunkType:    types.ChunkMedium,
		})
	}

	classifier := &staticClassifier{themeFor: themes}
	return &plannerFixture{
		planner:   NewTopicPlanner(logger.NewNop(), hierarchy, chunks, questions, classifier, DefaultCoverageCeiling),
		questions: questions,
		subs:      subs,
	}
}

func TestPlannerRecencyExclusion(t *testing.T) {
	fx := newPlannerFixture(t, []string{"A", "B", "C", "D"}, nil)

	recent := []uuid.UUID{fx.subs["A"].ID, fx.subs["B"].ID, fx.subs["C"].ID}
	sel, err := fx.planner.SelectNextTopic(context.Background(), uuid.New(), SelectOptions{
		RecentSubsectionIDs: recent,
		Deterministic:       true,
	})
	if err != nil {
		t.Fatalf("SelectNextTopic: %v", err)
	}
	if sel == nil {
		t.Fatalf("want a selection, got none")
	}
	if sel.Subsection.ID != fx.subs["D"].ID {
		t.Fatalf("recency exclusion: want=D got=%s", sel.Subsection.Title)
	}
}

func TestPlannerRecencyFallbackWhenAllRecent(t *testing.T) {
	fx := newPlannerFixture(t, []string{"A", "B"}, nil)

	sel, err := fx.planner.SelectNextTopic(context.Background(), uuid.New(), SelectOptions{
		RecentSubsectionIDs: []uuid.UUID{fx.subs["A"].ID, fx.subs["B"].ID},
		Deterministic:       true,
	})
	if err != nil {
		t.Fatalf("SelectNextTopic: %v", err)
	}
	if sel == nil {
		t.Fatalf("exclusion emptied the pool; want fallback to full set")
	}
	if sel.Subsection.ID != fx.subs["A"].ID {
		t.Fatalf("deterministic fallback pick: want=A got=%s", sel.Subsection.Title)
	}
}

func TestPlannerKeywordFilter(t *testing.T) {
	fx := newPlannerFixture(t, []string{"Thermodynamics", "Electromagnetism"}, nil)

	sel, err := fx.planner.SelectNextTopic(context.Background(), uuid.New(), SelectOptions{
		FilterKeywords: []string{"electro"},
		Deterministic:  true,
	})
	if err != nil {
		t.Fatalf("SelectNextTopic: %v", err)
	}
	if sel == nil || sel.Subsection.ID != fx.subs["Electromagnetism"].ID {
		t.Fatalf("keyword filter: want=Electromagnetism got=%v", sel)
	}
}

func TestPlannerKeywordFilterNoMatch(t *testing.T) {
	fx := newPlannerFixture(t, []string{"A", "B"}, nil)

	sel, err := fx.planner.SelectNextTopic(context.Background(), uuid.New(), SelectOptions{
		FilterKeywords: []string{"nonexistent"},
	})
	if err != nil {
		t.Fatalf("SelectNextTopic: %v", err)
	}
	if sel != nil {
		t.Fatalf("want no candidate when filter matches nothing, got %s", sel.Subsection.Title)
	}
}

func TestPlannerCoverageCeiling(t *testing.T) {
	fx := newPlannerFixture(t, []string{"A", "B"}, nil)
	fx.questions.counts[fx.subs["A"].ID] = DefaultCoverageCeiling

	sel, err := fx.planner.SelectNextTopic(context.Background(), uuid.New(), SelectOptions{Deterministic: true})
	if err != nil {
		t.Fatalf("SelectNextTopic: %v", err)
	}
	if sel == nil || sel.Subsection.ID != fx.subs["B"].ID {
		t.Fatalf("coverage ceiling: want=B got=%v", sel)
	}
}

func TestPlannerSessionModeBypassesCoverage(t *testing.T) {
	fx := newPlannerFixture(t, []string{"A"}, nil)
	fx.questions.counts[fx.subs["A"].ID] = DefaultCoverageCeiling + 5

	sel, err := fx.planner.SelectNextTopic(context.Background(), uuid.New(), SelectOptions{
		SessionMode:   true,
		Deterministic: true,
	})
	if err != nil {
		t.Fatalf("SelectNextTopic: %v", err)
	}
	if sel == nil {
		t.Fatalf("session mode must ignore the coverage ceiling")
	}
}

func TestPlannerThemeDiversityTieBreak(t *testing.T) {
	themes := map[string]string{"A": "kant", "B": "hume"}
	fx := newPlannerFixture(t, []string{"A", "B"}, themes)

	sel, err := fx.planner.SelectNextTopic(context.Background(), uuid.New(), SelectOptions{
		RecentThemes:  []string{"kant"},
		Deterministic: true,
	})
	if err != nil {
		t.Fatalf("SelectNextTopic: %v", err)
	}
	if sel == nil || sel.Theme != "hume" {
		t.Fatalf("diversity tie-break: want theme=hume got=%v", sel)
	}
}

func TestPlannerDiversityFallbackWhenAllThemesRecent(t *testing.T) {
	themes := map[string]string{"A": "kant", "B": "kant"}
	fx := newPlannerFixture(t, []string{"A", "B"}, themes)

	sel, err := fx.planner.SelectNextTopic(context.Background(), uuid.New(), SelectOptions{
		RecentThemes:  []string{"kant"},
		Deterministic: true,
	})
	if err != nil {
		t.Fatalf("SelectNextTopic: %v", err)
	}
	if sel == nil {
		t.Fatalf("diversity steering must degrade to the full pool, not empty it")
	}
}

func TestPlannerUsedChunksExcluded(t *testing.T) {
	fx := newPlannerFixture(t, []string{"A"}, nil)

	first, err := fx.planner.SelectNextTopic(context.Background(), uuid.New(), SelectOptions{Deterministic: true})
	if err != nil || first == nil {
		t.Fatalf("first selection: sel=%v err=%v", first, err)
	}

	second, err := fx.planner.SelectNextTopic(context.Background(), uuid.New(), SelectOptions{
		UsedChunkIDs:  []uuid.UUID{first.Chunk.ID},
		Deterministic: true,
	})
	if err != nil {
		t.Fatalf("second selection: %v", err)
	}
	if second != nil {
		t.Fatalf("sole chunk already used: want no candidate, got %s", second.Chunk.Content)
	}
}

func TestPlannerEmptyCourse(t *testing.T) {
	fx := newPlannerFixture(t, nil, nil)

	sel, err := fx.planner.SelectNextTopic(context.Background(), uuid.New(), SelectOptions{})
	if err != nil {
		t.Fatalf("SelectNextTopic: %v", err)
	}
	if sel != nil {
		t.Fatalf("empty course: want no candidate")
	}
}
