package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mediaflow/internal/domain/entity"
)

const assemblyAIBaseURL = "https://api.assemblyai.com"

// AssemblyAI is the adapter for the AssemblyAI transcript API. The
// backend is genuinely asynchronous: Submit creates a transcript job
// and Poll reads its status until completed or error.
type AssemblyAI struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewAssemblyAI constructs the adapter, or ErrNotConfigured when the
// API key is absent.
func NewAssemblyAI(apiKey string) (*AssemblyAI, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	return &AssemblyAI{
		apiKey:  apiKey,
		baseURL: assemblyAIBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (a *AssemblyAI) Name() string { return "assemblyai" }

func (a *AssemblyAI) Capabilities() entity.Capabilities {
	return entity.Capabilities{
		Transcription: true,
		Sentiment:     true,
		Chapters:      true,
		Diarization:   true,
		Keywords:      true,
		Entities:      true,
	}
}

type assemblyAISubmission struct {
	AudioURL          string `json:"audio_url"`
	LanguageCode      string `json:"language_code,omitempty"`
	SpeakerLabels     bool   `json:"speaker_labels,omitempty"`
	SentimentAnalysis bool   `json:"sentiment_analysis,omitempty"`
	AutoChapters      bool   `json:"auto_chapters,omitempty"`
	AutoHighlights    bool   `json:"auto_highlights,omitempty"`
	EntityDetection   bool   `json:"entity_detection,omitempty"`
}

type assemblyAITranscript struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Error      string `json:"error"`
	Utterances []struct {
		Start      int64   `json:"start"`
		End        int64   `json:"end"`
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
		Speaker    string  `json:"speaker"`
	} `json:"utterances"`
	Words []struct {
		Start      int64   `json:"start"`
		End        int64   `json:"end"`
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
		Speaker    string  `json:"speaker"`
	} `json:"words"`
	SentimentResults []struct {
		Start     int64  `json:"start"`
		Sentiment string `json:"sentiment"`
	} `json:"sentiment_analysis_results"`
	Entities []struct {
		Start      int64  `json:"start"`
		EntityType string `json:"entity_type"`
		Text       string `json:"text"`
	} `json:"entities"`
	Highlights struct {
		Results []struct {
			Text       string `json:"text"`
			Timestamps []struct {
				Start int64 `json:"start"`
				End   int64 `json:"end"`
			} `json:"timestamps"`
		} `json:"results"`
	} `json:"auto_highlights_result"`
}

// Submit creates a transcript job and returns its ID.
func (a *AssemblyAI) Submit(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(assemblyAISubmission{
		AudioURL:          req.MediaURL,
		LanguageCode:      req.Language,
		SpeakerLabels:     req.Capabilities.Diarization,
		SentimentAnalysis: req.Capabilities.Sentiment,
		AutoChapters:      req.Capabilities.Chapters,
		AutoHighlights:    req.Capabilities.Keywords,
		EntityDetection:   req.Capabilities.Entities,
	})
	if err != nil {
		return "", err
	}

	var created assemblyAITranscript
	if err := a.do(ctx, http.MethodPost, "/v2/transcript", bytes.NewReader(body), &created); err != nil {
		return "", fmt.Errorf("assemblyai submit: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("assemblyai submit: no transcript id in response")
	}
	return created.ID, nil
}

// Poll reads the transcript's current status and normalizes the result
// once completed.
func (a *AssemblyAI) Poll(ctx context.Context, ref string) (Status, error) {
	var t assemblyAITranscript
	if err := a.do(ctx, http.MethodGet, "/v2/transcript/"+ref, nil, &t); err != nil {
		return Status{}, fmt.Errorf("assemblyai poll: %w", err)
	}

	switch t.Status {
	case "completed":
		return Status{State: StateCompleted, Segments: a.normalize(&t)}, nil
	case "error":
		return Status{State: StateFailed, Error: t.Error}, nil
	default:
		return Status{State: StateWorking}, nil
	}
}

// normalize maps the transcript to ordered segments with times in
// seconds. Utterances are preferred (speaker-scoped spans); word-level
// output is the fallback.
func (a *AssemblyAI) normalize(t *assemblyAITranscript) []entity.TranscriptionSegment {
	sentimentAt := make(map[int64]string, len(t.SentimentResults))
	for _, s := range t.SentimentResults {
		sentimentAt[s.Start] = s.Sentiment
	}

	type span struct {
		start, end int64
		text       string
		confidence float64
		speaker    string
	}
	var spans []span
	for _, u := range t.Utterances {
		spans = append(spans, span{u.Start, u.End, u.Text, u.Confidence, u.Speaker})
	}
	if len(spans) == 0 {
		for _, w := range t.Words {
			spans = append(spans, span{w.Start, w.End, w.Text, w.Confidence, w.Speaker})
		}
	}

	segments := make([]entity.TranscriptionSegment, 0, len(spans))
	for _, s := range spans {
		seg := entity.TranscriptionSegment{
			Start:      float64(s.start) / 1000,
			End:        float64(s.end) / 1000,
			Text:       s.text,
			Confidence: s.confidence,
			Speaker:    s.speaker,
		}
		if sent, ok := sentimentAt[s.start]; ok {
			seg.Sentiment = mapSentiment(sent)
		}
		for _, e := range t.Entities {
			if e.Start >= s.start && e.Start < s.end {
				seg.Entities = append(seg.Entities, entity.NamedEntity{Type: e.EntityType, Text: e.Text})
			}
		}
		for _, h := range t.Highlights.Results {
			for _, ts := range h.Timestamps {
				if ts.Start < s.end && ts.End > s.start {
					seg.Keywords = append(seg.Keywords, h.Text)
					break
				}
			}
		}
		segments = append(segments, seg)
	}
	return segments
}

func (a *AssemblyAI) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func mapSentiment(s string) entity.Sentiment {
	switch s {
	case "POSITIVE", "positive":
		return entity.SentimentPositive
	case "NEGATIVE", "negative":
		return entity.SentimentNegative
	case "MIXED", "mixed":
		return entity.SentimentMixed
	default:
		return entity.SentimentNeutral
	}
}
