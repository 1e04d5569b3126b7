package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quizforge/quizforge-backend/internal/types"
)

// In-memory repo stand-ins. They ignore the tx argument; transactional
// behavior is covered by the repo layer itself.

type fakeChunkRepo struct {
	mu       sync.Mutex
	chunks   map[uuid.UUID]*types.Chunk
	created  []*types.Chunk
	setCalls map[uuid.UUID]string
}

func newFakeChunkRepo() *fakeChunkRepo {
	return &fakeChunkRepo{
		chunks:   make(map[uuid.UUID]*types.Chunk),
		setCalls: make(map[uuid.UUID]string),
	}
}

func (f *fakeChunkRepo) add(c *types.Chunk) *types.Chunk {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	f.chunks[c.ID] = c
	f.created = append(f.created, c)
	return c
}

func (f *fakeChunkRepo) CreateBatch(ctx context.Context, tx *gorm.DB, chunks []*types.Chunk) ([]*types.Chunk, error) {
	for _, c := range chunks {
		f.add(c)
	}
	return chunks, nil
}

func (f *fakeChunkRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chunks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (f *fakeChunkRepo) GetByVectorID(ctx context.Context, tx *gorm.DB, vectorID string) (*types.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.chunks {
		if c.VectorID == vectorID {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeChunkRepo) GetBySubsectionID(ctx context.Context, tx *gorm.DB, subsectionID uuid.UUID, chunkTypes ...types.ChunkType) ([]*types.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Chunk
	for _, c := range f.created {
		if c.SubsectionID != subsectionID {
			continue
		}
		if len(chunkTypes) > 0 && !containsType(chunkTypes, c.ChunkType) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeChunkRepo) GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, chunkTypes ...types.ChunkType) ([]*types.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Chunk
	for _, c := range f.created {
		if len(chunkTypes) > 0 && !containsType(chunkTypes, c.ChunkType) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeChunkRepo) SetVectorID(ctx context.Context, tx *gorm.DB, id uuid.UUID, vectorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.chunks[id]; ok {
		c.VectorID = vectorID
	}
	f.setCalls[id] = vectorID
	return nil
}

func containsType(haystack []types.ChunkType, needle types.ChunkType) bool {
	for _, t := range haystack {
		if t == needle {
			return true
		}
	}
	return false
}

type fakeQuestionRepo struct {
	mu           sync.Mutex
	questions    map[uuid.UUID]*types.Question
	counts       map[uuid.UUID]int64
	liked        []*types.Question
	disliked     []*types.Question
	deletedFor   []uuid.UUID
	createErr    error
	createdOrder []*types.Question
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{
		questions: make(map[uuid.UUID]*types.Question),
		counts:    make(map[uuid.UUID]int64),
	}
}

func (f *fakeQuestionRepo) Create(ctx context.Context, tx *gorm.DB, q *types.Question) (*types.Question, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	f.questions[q.ID] = q
	f.createdOrder = append(f.createdOrder, q)
	if q.SubsectionID != nil {
		f.counts[*q.SubsectionID]++
	}
	return q, nil
}

func (f *fakeQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return q, nil
}

func (f *fakeQuestionRepo) CountBySubsectionID(ctx context.Context, tx *gorm.DB, subsectionID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[subsectionID], nil
}

func (f *fakeQuestionRepo) GetTopVotedByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, liked bool, limit int) ([]*types.Question, error) {
	if liked {
		return f.liked, nil
	}
	return f.disliked, nil
}

func (f *fakeQuestionRepo) DeleteByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedFor = append(f.deletedFor, courseID)
	return nil
}

type fakeHierarchyRepo struct {
	mu            sync.Mutex
	tree          []*types.Chapter
	materials     map[uuid.UUID]*types.RawMaterial
	chapters      []*types.Chapter
	sections      []*types.Section
	subsections   []*types.Subsection
	deletedFor    []uuid.UUID
	subsectionErr error
}

func newFakeHierarchyRepo() *fakeHierarchyRepo {
	return &fakeHierarchyRepo{materials: make(map[uuid.UUID]*types.RawMaterial)}
}

func (f *fakeHierarchyRepo) CreateChapter(ctx context.Context, tx *gorm.DB, c *types.Chapter) (*types.Chapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chapters = append(f.chapters, c)
	return c, nil
}

func (f *fakeHierarchyRepo) CreateSection(ctx context.Context, tx *gorm.DB, s *types.Section) (*types.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sections = append(f.sections, s)
	return s, nil
}

func (f *fakeHierarchyRepo) CreateSubsection(ctx context.Context, tx *gorm.DB, s *types.Subsection) (*types.Subsection, error) {
	if f.subsectionErr != nil {
		return nil, f.subsectionErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subsections = append(f.subsections, s)
	return s, nil
}

func (f *fakeHierarchyRepo) CreateRawMaterial(ctx context.Context, tx *gorm.DB, m *types.RawMaterial) (*types.RawMaterial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.materials[m.SubsectionID] = m
	return m, nil
}

func (f *fakeHierarchyRepo) GetCourseTree(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Chapter, error) {
	return f.tree, nil
}

func (f *fakeHierarchyRepo) GetSubsectionByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Subsection, error) {
	for _, s := range f.subsections {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeHierarchyRepo) GetRawMaterialBySubsectionID(ctx context.Context, tx *gorm.DB, subsectionID uuid.UUID) (*types.RawMaterial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.materials[subsectionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m, nil
}

func (f *fakeHierarchyRepo) DeleteChaptersByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedFor = append(f.deletedFor, courseID)
	return nil
}

type fakeQuizRepo struct {
	quizzes map[uuid.UUID]*types.Quiz
	latest  *types.Quiz
}

func newFakeQuizRepo() *fakeQuizRepo {
	return &fakeQuizRepo{quizzes: make(map[uuid.UUID]*types.Quiz)}
}

func (f *fakeQuizRepo) Create(ctx context.Context, tx *gorm.DB, q *types.Quiz) (*types.Quiz, error) {
	f.quizzes[q.ID] = q
	return q, nil
}

func (f *fakeQuizRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Quiz, error) {
	q, ok := f.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return q, nil
}

func (f *fakeQuizRepo) GetLatestByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Quiz, error) {
	return f.latest, nil
}

type fakeTranscriptRepo struct {
	created []*types.Transcript
}

func (f *fakeTranscriptRepo) Create(ctx context.Context, tx *gorm.DB, t *types.Transcript) (*types.Transcript, error) {
	f.created = append(f.created, t)
	return t, nil
}

func (f *fakeTranscriptRepo) ListByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID, studentID uuid.UUID) ([]*types.Transcript, error) {
	return f.created, nil
}

type fakeRelationRepo struct {
	relations []*types.KnowledgeRelation
}

func (f *fakeRelationRepo) Create(ctx context.Context, tx *gorm.DB, r *types.KnowledgeRelation) (*types.KnowledgeRelation, error) {
	f.relations = append(f.relations, r)
	return r, nil
}

func (f *fakeRelationRepo) GetBySourceChunkID(ctx context.Context, tx *gorm.DB, chunkID uuid.UUID, limit int) ([]*types.KnowledgeRelation, error) {
	var out []*types.KnowledgeRelation
	for _, r := range f.relations {
		if r.SourceChunkID == chunkID {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Platform client stand-ins.

type fakeLLM struct {
	reply string
	err   error
	// prompts records every user prompt the service sent.
	prompts []string
	systems []string
}

func (f *fakeLLM) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.systems = append(f.systems, system)
	f.prompts = append(f.prompts, user)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeEmbedClient struct {
	dim    int
	vecFor func(text string) ([]float32, error)
}

func (f *fakeEmbedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vecFor(text)
}

func (f *fakeEmbedClient) Dim() int { return f.dim }

type fakeRetriever struct {
	chunks []*types.Chunk
	err    error
	// gotQuery records the query text of the last call.
	gotQuery string
	gotTypes []types.ChunkType
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, topK int, allowed []types.ChunkType) ([]*types.Chunk, error) {
	f.gotQuery = query
	f.gotTypes = allowed
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

type fakeEvaluator struct {
	result *Evaluation
	err    error
	got    EvaluateInput
}

func (f *fakeEvaluator) EvaluateAnswer(ctx context.Context, in EvaluateInput) (*Evaluation, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeEmbedder struct {
	embedded   [][]*types.Chunk
	resetCalls int
	embedErr   error
}

func (f *fakeEmbedder) EmbedChunks(ctx context.Context, chunks []*types.Chunk) error {
	if f.embedErr != nil {
		return f.embedErr
	}
	f.embedded = append(f.embedded, chunks)
	return nil
}

func (f *fakeEmbedder) ResetIndex(ctx context.Context) error {
	f.resetCalls++
	return nil
}

func (f *fakeEmbedder) ReembedCourse(ctx context.Context, courseID uuid.UUID) error {
	return nil
}

type fakeExtraction struct {
	chapters []ExtractedChapter
	err      error
}

func (f *fakeExtraction) Extract(ctx context.Context, filePath string) ([]ExtractedChapter, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.chapters, nil
}

type fakePlanner struct {
	selections []*Selection
	calls      int
	gotOpts    []SelectOptions
}

func (f *fakePlanner) SelectNextTopic(ctx context.Context, courseID uuid.UUID, opts SelectOptions) (*Selection, error) {
	f.gotOpts = append(f.gotOpts, opts)
	if f.calls >= len(f.selections) {
		return nil, nil
	}
	sel := f.selections[f.calls]
	f.calls++
	return sel, nil
}

type staticClassifier struct {
	themeFor map[string]string
}

func (f *staticClassifier) Classify(text string) Theme {
	if tag, ok := f.themeFor[text]; ok {
		return Theme{Tag: tag, Confidence: 1}
	}
	return Theme{Tag: ThemeUnknown}
}
