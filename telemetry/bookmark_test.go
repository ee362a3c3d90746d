package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_Scatter(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{
			WindowEndTick: int32(i * 600),
			Boids:         100,
			Polarization:  0.8,
			SpreadMean:    10,
		})
	}

	bookmarks := bd.Check(WindowStats{
		WindowEndTick: 3000,
		Boids:         100,
		Polarization:  0.2,
		SpreadMean:    10,
	})
	if !hasBookmark(bookmarks, BookmarkScatter) {
		t.Error("expected scatter bookmark")
	}
	if hasBookmark(bookmarks, BookmarkCollapse) {
		t.Error("unexpected collapse bookmark")
	}
}

func TestBookmarkDetector_Escape(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 4; i++ {
		bd.Check(WindowStats{
			WindowEndTick: int32(i * 600),
			Boids:         100,
			OutOfBounds:   1,
		})
	}

	bookmarks := bd.Check(WindowStats{
		WindowEndTick: 2400,
		Boids:         100,
		OutOfBounds:   40,
	})
	if !hasBookmark(bookmarks, BookmarkEscape) {
		t.Error("expected escape bookmark")
	}
}

func TestBookmarkDetector_Collapse(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 4; i++ {
		bd.Check(WindowStats{
			WindowEndTick: int32(i * 600),
			Boids:         50,
			SpreadMean:    12,
		})
	}

	bookmarks := bd.Check(WindowStats{
		WindowEndTick: 2400,
		Boids:         50,
		SpreadMean:    1,
	})
	if !hasBookmark(bookmarks, BookmarkCollapse) {
		t.Error("expected collapse bookmark")
	}
}

func TestBookmarkDetector_AlignedFiresOnce(t *testing.T) {
	bd := NewBookmarkDetector(10)

	fired := 0
	for i := 0; i < 10; i++ {
		bookmarks := bd.Check(WindowStats{
			WindowEndTick: int32(i * 600),
			Boids:         100,
			Polarization:  0.95,
			SpreadMean:    8,
		})
		if hasBookmark(bookmarks, BookmarkAligned) {
			fired++
			if i != 4 {
				t.Errorf("aligned fired at window %d, want 4", i)
			}
		}
	}
	if fired != 1 {
		t.Errorf("aligned fired %d times, want 1", fired)
	}
}

func TestBookmarkDetector_NeedsHistory(t *testing.T) {
	bd := NewBookmarkDetector(10)

	bd.Check(WindowStats{Boids: 10, Polarization: 0.9, SpreadMean: 10})
	bookmarks := bd.Check(WindowStats{Boids: 10, Polarization: 0.0, SpreadMean: 0.1})
	if len(bookmarks) != 0 {
		t.Errorf("expected no bookmarks with short history, got %v", bookmarks)
	}
}

func TestBookmarkDetector_EmptyFlock(t *testing.T) {
	bd := NewBookmarkDetector(3)
	for i := 0; i < 10; i++ {
		if got := bd.Check(WindowStats{WindowEndTick: int32(i)}); len(got) != 0 {
			t.Fatalf("empty flock produced bookmarks: %v", got)
		}
	}
}
