package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediaflow/internal/domain/entity"
)

const openAIBaseURL = "https://api.openai.com"

// OpenAI is the adapter for Whisper via the OpenAI audio API. The API
// is synchronous, so Submit performs the whole transcription and Poll
// hands back the stored result on its first call.
type OpenAI struct {
	apiKey  string
	baseURL string
	client  *http.Client

	mu      sync.Mutex
	results map[string]Status
}

// NewOpenAI constructs the adapter, or ErrNotConfigured when the API
// key is absent.
func NewOpenAI(apiKey string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	return &OpenAI{
		apiKey:  apiKey,
		baseURL: openAIBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
		results: make(map[string]Status),
	}, nil
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Capabilities() entity.Capabilities {
	return entity.Capabilities{Transcription: true}
}

type whisperResponse struct {
	Language string `json:"language"`
	Segments []struct {
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Text       string  `json:"text"`
		AvgLogprob float64 `json:"avg_logprob"`
	} `json:"segments"`
}

// Submit downloads the media and runs one synchronous Whisper request.
// The returned ref keys the stored result for Poll.
func (o *OpenAI) Submit(ctx context.Context, req Request) (string, error) {
	media, err := o.fetchMedia(ctx, req.MediaURL)
	if err != nil {
		return "", fmt.Errorf("openai fetch media: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "media.mp4")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(media); err != nil {
		return "", err
	}
	_ = form.WriteField("model", "whisper-1")
	_ = form.WriteField("response_format", "verbose_json")
	if req.Language != "" {
		_ = form.WriteField("language", req.Language)
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai transcribe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("openai transcribe: status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var parsed whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("openai decode: %w", err)
	}

	ref := uuid.New().String()
	o.mu.Lock()
	o.results[ref] = Status{State: StateCompleted, Segments: normalizeWhisper(&parsed)}
	o.mu.Unlock()
	return ref, nil
}

// Poll returns the stored result for a completed synchronous request.
func (o *OpenAI) Poll(_ context.Context, ref string) (Status, error) {
	o.mu.Lock()
	status, ok := o.results[ref]
	if ok {
		delete(o.results, ref)
	}
	o.mu.Unlock()

	if !ok {
		return Status{}, fmt.Errorf("openai: unknown attempt ref %s", ref)
	}
	return status, nil
}

func (o *OpenAI) fetchMedia(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("status %d fetching media", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// normalizeWhisper maps verbose_json segments to the normalized shape.
// Whisper reports avg_logprob rather than a confidence; exp(logprob)
// clamped to [0,1] is the usual conversion.
func normalizeWhisper(r *whisperResponse) []entity.TranscriptionSegment {
	segments := make([]entity.TranscriptionSegment, 0, len(r.Segments))
	for _, s := range r.Segments {
		confidence := logprobToConfidence(s.AvgLogprob)
		segments = append(segments, entity.TranscriptionSegment{
			Start:      s.Start,
			End:        s.End,
			Text:       s.Text,
			Confidence: confidence,
		})
	}
	return segments
}

func logprobToConfidence(logprob float64) float64 {
	c := math.Exp(logprob)
	if c > 1 {
		return 1
	}
	if c < 0 {
		return 0
	}
	return c
}
