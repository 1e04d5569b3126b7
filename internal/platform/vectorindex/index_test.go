package vectorindex

import (
	"path/filepath"
	"testing"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
)

func newTestIndex(t *testing.T, dim int) *Index {
	t.Helper()
	idx, err := Open(logger.NewNop(), filepath.Join(t.TempDir(), "index.bin"), dim)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return idx
}

func TestAddAssignsContiguousOffsets(t *testing.T) {
	idx := newTestIndex(t, 3)

	start, err := idx.Add([][]float32{{1, 0, 0}, {0, 1, 0}})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if start != 0 {
		t.Fatalf("start: want=0 got=%d", start)
	}

	start, err = idx.Add([][]float32{{0, 0, 1}})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if start != 2 {
		t.Fatalf("start: want=2 got=%d", start)
	}
	if idx.Len() != 3 {
		t.Fatalf("Len: want=3 got=%d", idx.Len())
	}
}

func TestAddRejectsDimensionMismatch(t *testing.T) {
	idx := newTestIndex(t, 3)

	_, err := idx.Add([][]float32{{1, 0}})
	opErr, ok := err.(*OperationError)
	if !ok {
		t.Fatalf("expected *OperationError, got=%T", err)
	}
	if opErr.Code != OperationErrorDimension {
		t.Fatalf("code: want=%q got=%q", OperationErrorDimension, opErr.Code)
	}
}

func TestSearchOrdersByAscendingDistance(t *testing.T) {
	idx := newTestIndex(t, 2)
	if _, err := idx.Add([][]float32{{10, 10}, {1, 1}, {5, 5}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	hits, err := idx.Search([]float32{0, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	wantOffsets := []int{1, 2, 0}
	for i, want := range wantOffsets {
		if hits[i].Offset != want {
			t.Fatalf("hit %d: want offset=%d got=%d", i, want, hits[i].Offset)
		}
	}
	if hits[0].Distance > hits[1].Distance || hits[1].Distance > hits[2].Distance {
		t.Fatalf("distances not ascending: %v", hits)
	}
}

func TestSearchCapsAtK(t *testing.T) {
	idx := newTestIndex(t, 2)
	if _, err := idx.Add([][]float32{{1, 0}, {2, 0}, {3, 0}, {4, 0}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	hits, err := idx.Search([]float32{0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits: want=2 got=%d", len(hits))
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")

	idx, err := Open(logger.NewNop(), path, 2)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := idx.Add([][]float32{{1, 2}, {3, 4}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Open(logger.NewNop(), path, 2)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("reloaded Len: want=2 got=%d", reloaded.Len())
	}
}

func TestResetClearsMemoryAndDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")

	idx, err := Open(logger.NewNop(), path, 2)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := idx.Add([][]float32{{1, 2}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := idx.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if idx.Len() != 0 {
		t.Fatalf("Len after reset: want=0 got=%d", idx.Len())
	}

	reloaded, err := Open(logger.NewNop(), path, 2)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reloaded.Len() != 0 {
		t.Fatalf("reloaded Len after reset: want=0 got=%d", reloaded.Len())
	}
}

func TestRoundTripAfterReset(t *testing.T) {
	idx := newTestIndex(t, 2)

	batch := [][]float32{{1, 0}, {0, 1}, {1, 1}}
	if _, err := idx.Add(batch); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	start, err := idx.Add(batch)
	if err != nil {
		t.Fatalf("re-Add: %v", err)
	}
	if start != 0 {
		t.Fatalf("start after reset: want=0 got=%d", start)
	}
	if idx.Len() != len(batch) {
		t.Fatalf("Len: want=%d got=%d", len(batch), idx.Len())
	}
}
