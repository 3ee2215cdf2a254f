package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediaflow/internal/domain/entity"
)

const deepgramBaseURL = "https://api.deepgram.com"

// Deepgram is the adapter for the Deepgram prerecorded API. Like the
// OpenAI adapter it is synchronous: Submit runs the request and Poll
// returns the stored result.
type Deepgram struct {
	apiKey  string
	baseURL string
	client  *http.Client

	mu      sync.Mutex
	results map[string]Status
}

// NewDeepgram constructs the adapter, or ErrNotConfigured when the
// API key is absent.
func NewDeepgram(apiKey string) (*Deepgram, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	return &Deepgram{
		apiKey:  apiKey,
		baseURL: deepgramBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
		results: make(map[string]Status),
	}, nil
}

func (d *Deepgram) Name() string { return "deepgram" }

func (d *Deepgram) Capabilities() entity.Capabilities {
	return entity.Capabilities{
		Transcription: true,
		Sentiment:     true,
		Diarization:   true,
		Keywords:      true,
	}
}

type deepgramResponse struct {
	Results struct {
		Utterances []struct {
			Start      float64 `json:"start"`
			End        float64 `json:"end"`
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Speaker    *int    `json:"speaker"`
		} `json:"utterances"`
		Sentiments struct {
			Segments []struct {
				StartWord int    `json:"start_word"`
				Sentiment string `json:"sentiment"`
			} `json:"segments"`
		} `json:"sentiments"`
	} `json:"results"`
}

// Submit runs one synchronous prerecorded transcription against the
// signed media URL.
func (d *Deepgram) Submit(ctx context.Context, req Request) (string, error) {
	q := url.Values{}
	q.Set("punctuate", "true")
	q.Set("utterances", "true")
	if req.Language != "" {
		q.Set("language", req.Language)
	}
	if req.Capabilities.Diarization {
		q.Set("diarize", "true")
	}
	if req.Capabilities.Sentiment {
		q.Set("sentiment", "true")
	}

	body, err := json.Marshal(map[string]string{"url": req.MediaURL})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v1/listen?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Token "+d.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("deepgram transcribe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("deepgram transcribe: status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var parsed deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("deepgram decode: %w", err)
	}

	ref := uuid.New().String()
	d.mu.Lock()
	d.results[ref] = Status{State: StateCompleted, Segments: normalizeDeepgram(&parsed)}
	d.mu.Unlock()
	return ref, nil
}

// Poll returns the stored result for a completed synchronous request.
func (d *Deepgram) Poll(_ context.Context, ref string) (Status, error) {
	d.mu.Lock()
	status, ok := d.results[ref]
	if ok {
		delete(d.results, ref)
	}
	d.mu.Unlock()

	if !ok {
		return Status{}, fmt.Errorf("deepgram: unknown attempt ref %s", ref)
	}
	return status, nil
}

func normalizeDeepgram(r *deepgramResponse) []entity.TranscriptionSegment {
	segments := make([]entity.TranscriptionSegment, 0, len(r.Results.Utterances))
	for _, u := range r.Results.Utterances {
		seg := entity.TranscriptionSegment{
			Start:      u.Start,
			End:        u.End,
			Text:       u.Transcript,
			Confidence: clamp01(u.Confidence),
		}
		if u.Speaker != nil {
			seg.Speaker = "speaker_" + strconv.Itoa(*u.Speaker)
		}
		segments = append(segments, seg)
	}
	for i, s := range r.Results.Sentiments.Segments {
		if i < len(segments) {
			segments[i].Sentiment = mapSentiment(s.Sentiment)
		}
	}
	return segments
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
