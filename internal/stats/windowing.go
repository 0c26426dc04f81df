package stats

import (
	"fmt"
	"time"
)

// AnalysisWindow defines the temporal context for throughput bucketing.
type AnalysisWindow struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Bucket string    `json:"bucket"` // "day", "week"
}

// NewAnalysisWindow creates a new window with normalized boundaries.
func NewAnalysisWindow(start, end time.Time, bucket string) AnalysisWindow {
	if bucket == "" {
		bucket = "day"
	}

	return AnalysisWindow{
		Start:  SnapToStart(start, bucket),
		End:    SnapToEnd(end, bucket),
		Bucket: bucket,
	}
}

// TrailingWindow returns the daily window of the given length ending on (and including) end.
func TrailingWindow(end time.Time, days int) AnalysisWindow {
	if days < 1 {
		days = 1
	}
	return NewAnalysisWindow(end.AddDate(0, 0, -(days-1)), end, "day")
}

// SnapToStart normalizes a timestamp to the beginning of its bucket (0:00:00).
func SnapToStart(t time.Time, bucket string) time.Time {
	if t.IsZero() {
		return t
	}
	switch bucket {
	case "week":
		// Snap to Monday
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday -> 7
		}
		return time.Date(t.Year(), t.Month(), t.Day()-(weekday-1), 0, 0, 0, 0, t.Location())
	default: // day
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

// SnapToEnd normalizes a timestamp to the very end of its bucket (23:59:59.999...).
func SnapToEnd(t time.Time, bucket string) time.Time {
	if t.IsZero() {
		return t
	}
	switch bucket {
	case "week":
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		return time.Date(t.Year(), t.Month(), t.Day()+(7-weekday), 23, 59, 59, 999999999, t.Location())
	default: // day
		return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
	}
}

// Subdivide returns a list of bucket start times within the window.
func (w AnalysisWindow) Subdivide() []time.Time {
	var buckets []time.Time
	current := w.Start

	for current.Before(w.End) {
		buckets = append(buckets, current)
		switch w.Bucket {
		case "week":
			current = current.AddDate(0, 0, 7)
		default: // day
			current = current.AddDate(0, 0, 1)
		}
	}
	return buckets
}

// FindBucketIndex returns the index of the bucket containing t. Returns -1 if out of bounds.
func (w AnalysisWindow) FindBucketIndex(t time.Time) int {
	tNorm := SnapToStart(t, w.Bucket)
	if tNorm.Before(w.Start) || tNorm.After(w.End) {
		return -1
	}

	// Calendar days, not 24h spans (DST).
	days := 0
	for d := w.Start; d.Before(tNorm); d = d.AddDate(0, 0, 1) {
		days++
	}

	switch w.Bucket {
	case "week":
		return days / 7
	default: // day
		return days
	}
}

// GenerateLabel returns a human-readable label for a bucket (e.g., "2024-W01" or "2024-01-31").
func (w AnalysisWindow) GenerateLabel(t time.Time) string {
	switch w.Bucket {
	case "week":
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	default: // day
		return t.Format("2006-01-02")
	}
}
