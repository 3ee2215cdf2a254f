package entity

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentMixed    Sentiment = "mixed"
)

// NamedEntity is one entity mention extracted from a segment.
type NamedEntity struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TranscriptionSegment is a time-bounded unit of recognized speech,
// normalized across providers: times in seconds from media start,
// confidence in [0,1], segments ordered and non-overlapping.
type TranscriptionSegment struct {
	Start      float64       `json:"start"`
	End        float64       `json:"end"`
	Text       string        `json:"text"`
	Confidence float64       `json:"confidence"`
	Speaker    string        `json:"speaker,omitempty"`
	Sentiment  Sentiment     `json:"sentiment,omitempty"`
	Keywords   []string      `json:"keywords,omitempty"`
	Entities   []NamedEntity `json:"entities,omitempty"`
}
