package vectorindex

import (
	"encoding/gob"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
)

// Index is a flat, append-only vector index. Vectors are addressed by their
// insertion offset, so the Embedder owning the writes is the only component
// allowed to assign chunk vector ids. Search is a brute-force L2 scan, which
// keeps the on-disk form trivially rebuildable from the live chunk set.
type Index struct {
	mu      sync.RWMutex
	log     *logger.Logger
	dim     int
	path    string
	vectors [][]float32
}

type Hit struct {
	Offset   int
	Distance float32
}

type persistedIndex struct {
	Dim     int
	Vectors [][]float32
}

// Open loads the index file at path if one exists, otherwise starts empty.
// A file with a different dimension is discarded and rebuilt from scratch,
// matching the reset-before-reingest discipline.
func Open(log *logger.Logger, path string, dim int) (*Index, error) {
	if dim <= 0 {
		return nil, opErr("open", OperationErrorValidation, "dimension must be positive", nil)
	}
	idx := &Index{
		log:  log.With("service", "VectorIndex"),
		dim:  dim,
		path: path,
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, opErr("open", OperationErrorLoadFailed, "", err)
	}
	defer f.Close()

	var stored persistedIndex
	if err := gob.NewDecoder(f).Decode(&stored); err != nil {
		idx.log.Warn("index file unreadable, starting empty", "path", path, "error", err)
		return idx, nil
	}
	if stored.Dim != dim {
		idx.log.Warn("index dimension mismatch, starting empty", "stored_dim", stored.Dim, "want_dim", dim)
		return idx, nil
	}
	idx.vectors = stored.Vectors
	idx.log.Info("vector index loaded", "path", path, "vectors", len(idx.vectors), "dim", dim)
	return idx, nil
}

// Add appends vectors and returns the offset of the first one. Offsets are
// contiguous, so the caller maps chunk i to startOffset+i.
func (x *Index) Add(vectors [][]float32) (int, error) {
	const op = "add"
	if len(vectors) == 0 {
		return 0, opErr(op, OperationErrorValidation, "no vectors given", nil)
	}
	for _, v := range vectors {
		if len(v) != x.dim {
			return 0, opErr(op, OperationErrorDimension, "", nil)
		}
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	start := len(x.vectors)
	x.vectors = append(x.vectors, vectors...)
	return start, nil
}

// Search returns up to k hits ordered by ascending L2 distance.
func (x *Index) Search(query []float32, k int) ([]Hit, error) {
	const op = "search"
	if len(query) != x.dim {
		return nil, opErr(op, OperationErrorDimension, "", nil)
	}
	if k <= 0 {
		return nil, opErr(op, OperationErrorValidation, "k must be positive", nil)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	hits := make([]Hit, 0, len(x.vectors))
	for i, v := range x.vectors {
		hits = append(hits, Hit{Offset: i, Distance: l2(query, v)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance == hits[j].Distance {
			return hits[i].Offset < hits[j].Offset
		}
		return hits[i].Distance < hits[j].Distance
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

func (x *Index) Dim() int { return x.dim }

// Save writes the full index to disk via a temp-file rename, so a crash mid
// write leaves the previous file intact and loses at most one batch.
func (x *Index) Save() error {
	const op = "save"
	x.mu.RLock()
	defer x.mu.RUnlock()

	if dir := filepath.Dir(x.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return opErr(op, OperationErrorPersistFailed, "", err)
		}
	}
	tmp := x.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return opErr(op, OperationErrorPersistFailed, "", err)
	}
	if err := gob.NewEncoder(f).Encode(persistedIndex{Dim: x.dim, Vectors: x.vectors}); err != nil {
		f.Close()
		os.Remove(tmp)
		return opErr(op, OperationErrorPersistFailed, "", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return opErr(op, OperationErrorPersistFailed, "", err)
	}
	if err := os.Rename(tmp, x.path); err != nil {
		return opErr(op, OperationErrorPersistFailed, "", err)
	}
	return nil
}

// Reset drops every vector and removes the on-disk file. Run before a course
// is re-ingested so stale vectors can never be retrieved again.
func (x *Index) Reset() error {
	const op = "reset"
	x.mu.Lock()
	defer x.mu.Unlock()
	x.vectors = nil
	if err := os.Remove(x.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return opErr(op, OperationErrorPersistFailed, "", err)
	}
	x.log.Info("vector index cleared", "path", x.path)
	return nil
}

func l2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
