package entity

// VideoChapter is a derived summary unit over a span of the media.
// Chapters for one job are ordered, non-overlapping, and immutable
// once produced.
type VideoChapter struct {
	Title     string   `json:"title"`
	Start     float64  `json:"start"`
	End       float64  `json:"end"`
	Summary   string   `json:"summary"`
	KeyTopics []string `json:"keyTopics,omitempty"`
}
