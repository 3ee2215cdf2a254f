package usecase

import (
	"strings"

	"mediaflow/internal/domain/entity"
)

const (
	defaultChapterSpanSeconds = 120
	chapterTitleMaxWords      = 6
	chapterSummaryMaxRunes    = 240
)

// ChapterGenerator derives ordered, non-overlapping chapters from a
// completed transcription. Purely a function of the segments, so two
// runs over the same transcript produce identical chapters.
type ChapterGenerator struct {
	spanSeconds float64
}

func NewChapterGenerator() *ChapterGenerator {
	return &ChapterGenerator{spanSeconds: defaultChapterSpanSeconds}
}

// Generate splits the transcript into fixed spans and summarizes each.
// Returns nil for an empty transcript.
func (g *ChapterGenerator) Generate(segments []entity.TranscriptionSegment) []entity.VideoChapter {
	if len(segments) == 0 {
		return nil
	}

	var chapters []entity.VideoChapter
	var window []entity.TranscriptionSegment
	windowStart := segments[0].Start

	flush := func(end float64) {
		if len(window) == 0 {
			return
		}
		chapters = append(chapters, g.summarize(window, windowStart, end))
		window = window[:0]
	}

	for _, seg := range segments {
		if seg.Start-windowStart >= g.spanSeconds && len(window) > 0 {
			flush(seg.Start)
			windowStart = seg.Start
		}
		window = append(window, seg)
	}
	flush(segments[len(segments)-1].End)

	return chapters
}

func (g *ChapterGenerator) summarize(window []entity.TranscriptionSegment, start, end float64) entity.VideoChapter {
	var text strings.Builder
	topics := make([]string, 0, 4)
	seen := make(map[string]struct{})

	for _, seg := range window {
		if text.Len() > 0 {
			text.WriteByte(' ')
		}
		text.WriteString(strings.TrimSpace(seg.Text))
		for _, kw := range seg.Keywords {
			if _, ok := seen[kw]; ok {
				continue
			}
			seen[kw] = struct{}{}
			topics = append(topics, kw)
		}
	}

	full := text.String()
	return entity.VideoChapter{
		Title:     chapterTitle(full),
		Start:     start,
		End:       end,
		Summary:   truncateRunes(full, chapterSummaryMaxRunes),
		KeyTopics: topics,
	}
}

func chapterTitle(text string) string {
	words := strings.Fields(text)
	if len(words) > chapterTitleMaxWords {
		words = words[:chapterTitleMaxWords]
		return strings.Join(words, " ") + "..."
	}
	if len(words) == 0 {
		return "Untitled chapter"
	}
	return strings.Join(words, " ")
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
