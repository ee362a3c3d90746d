package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkScatter  BookmarkType = "scatter"
	BookmarkEscape   BookmarkType = "escape"
	BookmarkCollapse BookmarkType = "collapse"
	BookmarkAligned  BookmarkType = "aligned"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        int32        `csv:"tick" json:"tick"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the flock.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	alignedWindows int // consecutive windows with high polarisation
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if stats.Boids > 0 {
		if b := bd.checkScatter(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkEscape(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkCollapse(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkAligned(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// average returns the rolling mean of f over the history, or false with
// fewer than three windows.
func (bd *BookmarkDetector) average(f func(WindowStats) float64) (float64, bool) {
	history := bd.getHistory()
	if len(history) < 3 {
		return 0, false
	}
	var sum float64
	for _, h := range history {
		sum += f(h)
	}
	return sum / float64(len(history)), true
}

// checkScatter fires when polarisation falls below half its rolling average.
func (bd *BookmarkDetector) checkScatter(stats WindowStats) *Bookmark {
	avg, ok := bd.average(func(w WindowStats) float64 { return w.Polarization })
	if !ok || avg < 0.3 {
		return nil
	}
	if stats.Polarization < avg*0.5 {
		return &Bookmark{
			Type:        BookmarkScatter,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Polarization %.2f dropped below half the average (%.2f)", stats.Polarization, avg),
		}
	}
	return nil
}

// checkEscape fires when more than a quarter of the flock is outside the
// volume after a mostly contained history.
func (bd *BookmarkDetector) checkEscape(stats WindowStats) *Bookmark {
	avg, ok := bd.average(func(w WindowStats) float64 {
		if w.Boids == 0 {
			return 0
		}
		return float64(w.OutOfBounds) / float64(w.Boids)
	})
	if !ok || avg > 0.05 {
		return nil
	}
	frac := float64(stats.OutOfBounds) / float64(stats.Boids)
	if frac > 0.25 {
		return &Bookmark{
			Type:        BookmarkEscape,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d of %d boids outside the volume", stats.OutOfBounds, stats.Boids),
		}
	}
	return nil
}

// checkCollapse fires when the spread shrinks below a quarter of its
// rolling average.
func (bd *BookmarkDetector) checkCollapse(stats WindowStats) *Bookmark {
	avg, ok := bd.average(func(w WindowStats) float64 { return w.SpreadMean })
	if !ok || avg == 0 {
		return nil
	}
	if stats.SpreadMean < avg*0.25 {
		return &Bookmark{
			Type:        BookmarkCollapse,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Spread %.2f is %.0f%% of average (%.2f)", stats.SpreadMean, stats.SpreadMean/avg*100, avg),
		}
	}
	return nil
}

// checkAligned fires once after five consecutive windows with polarisation
// above 0.9.
func (bd *BookmarkDetector) checkAligned(stats WindowStats) *Bookmark {
	if stats.Polarization > 0.9 {
		bd.alignedWindows++
	} else {
		bd.alignedWindows = 0
	}

	if bd.alignedWindows == 5 {
		return &Bookmark{
			Type:        BookmarkAligned,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Flock of %d aligned (polarization %.2f) over 5 windows", stats.Boids, stats.Polarization),
		}
	}
	return nil
}
