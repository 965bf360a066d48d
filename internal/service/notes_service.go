package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/evan-hart/studyplan-api/pkg/jobs"
)

const (
	jobTypeSessionNote = "session_note"
	jobTypeReflection  = "replan_reflection"

	noteBodyLimit = 8 << 10
)

// noteRequest is the payload of a session_note job.
type noteRequest struct {
	TimetableID string `json:"timetable_id"`
	SessionID   string `json:"session_id"`
	Date        string `json:"date"`
	Subject     string `json:"subject"`
	Topic       string `json:"topic"`
	SessionType string `json:"session_type"`
}

// reflectionPayload is the payload of a replan_reflection job.
type reflectionPayload struct {
	TimetableID string `json:"timetable_id"`
	Date        string `json:"date"`
	Reflection  string `json:"reflection"`
}

type noteCache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// NoteService asks an external provider for a short revision hint per
// session and caches the result for schedule reads to merge in. Enrichment
// is best-effort; a failed fetch never touches the schedule itself.
type NoteService struct {
	providerURL string
	client      *http.Client
	cache       noteCache
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NoteServiceConfig governs provider calls.
type NoteServiceConfig struct {
	ProviderURL    string
	RequestTimeout time.Duration
	CacheTTL       time.Duration
}

// NewNoteService wires note enrichment dependencies.
func NewNoteService(cache noteCache, logger *zap.Logger, cfg NoteServiceConfig) *NoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return &NoteService{
		providerURL: cfg.ProviderURL,
		client:      &http.Client{Timeout: cfg.RequestTimeout},
		cache:       cache,
		cacheTTL:    cfg.CacheTTL,
		logger:      logger,
	}
}

// Handle processes queued enrichment jobs.
func (s *NoteService) Handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobTypeSessionNote:
		req, ok := job.Payload.(noteRequest)
		if !ok {
			return fmt.Errorf("unexpected payload type for %s job", job.Type)
		}
		return s.enrichSession(ctx, req)
	case jobTypeReflection:
		payload, ok := job.Payload.(reflectionPayload)
		if !ok {
			return fmt.Errorf("unexpected payload type for %s job", job.Type)
		}
		s.logger.Info("replan reflection recorded",
			zap.String("timetable_id", payload.TimetableID),
			zap.String("date", payload.Date),
			zap.Int("length", len(payload.Reflection)))
		return nil
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}

func (s *NoteService) enrichSession(ctx context.Context, req noteRequest) error {
	note, err := s.fetchNote(ctx, req)
	if err != nil {
		return fmt.Errorf("fetch note for session %s: %w", req.SessionID, err)
	}
	if note == "" || s.cache == nil {
		return nil
	}
	if err := s.cache.Set(ctx, noteCacheKey(req.TimetableID, req.SessionID), note, s.cacheTTL); err != nil {
		return fmt.Errorf("cache note for session %s: %w", req.SessionID, err)
	}
	return nil
}

func (s *NoteService) fetchNote(ctx context.Context, req noteRequest) (string, error) {
	if s.providerURL == "" {
		return "", nil
	}
	body, err := json.Marshal(map[string]string{
		"subject": req.Subject,
		"topic":   req.Topic,
		"type":    req.SessionType,
	})
	if err != nil {
		return "", fmt.Errorf("encode note request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.providerURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build note request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("note provider returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, noteBodyLimit))
	if err != nil {
		return "", fmt.Errorf("read note response: %w", err)
	}
	var parsed struct {
		Note string `json:"note"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode note response: %w", err)
	}
	return parsed.Note, nil
}

func noteCacheKey(timetableID, sessionID string) string {
	return fmt.Sprintf("timetable:%s:note:%s", timetableID, sessionID)
}
