package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evan-hart/studyplan-api/pkg/jobs"
)

func TestNoteServiceHandleSessionNote(t *testing.T) {
	var received map[string]string
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"note":"start with past paper question 3"}`))
	}))
	defer provider.Close()

	cache := newCacheStub()
	svc := NewNoteService(cache, nil, NoteServiceConfig{ProviderURL: provider.URL})

	err := svc.Handle(context.Background(), jobs.Job{
		Type: jobTypeSessionNote,
		Payload: noteRequest{
			TimetableID: "tt-1",
			SessionID:   "sess-1",
			Subject:     "Maths",
			Topic:       "Algebra",
			SessionType: "revision",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Maths", received["subject"])
	assert.Equal(t, "Algebra", received["topic"])

	var note string
	require.NoError(t, cache.Get(context.Background(), noteCacheKey("tt-1", "sess-1"), &note))
	assert.Equal(t, "start with past paper question 3", note)
}

func TestNoteServiceHandleProviderFailure(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer provider.Close()

	cache := newCacheStub()
	svc := NewNoteService(cache, nil, NoteServiceConfig{ProviderURL: provider.URL})

	err := svc.Handle(context.Background(), jobs.Job{
		Type:    jobTypeSessionNote,
		Payload: noteRequest{TimetableID: "tt-1", SessionID: "sess-1"},
	})
	require.Error(t, err)
	assert.Empty(t, cache.data, "failed fetches must not cache anything")
}

func TestNoteServiceHandleWithoutProviderIsNoOp(t *testing.T) {
	cache := newCacheStub()
	svc := NewNoteService(cache, nil, NoteServiceConfig{})

	err := svc.Handle(context.Background(), jobs.Job{
		Type:    jobTypeSessionNote,
		Payload: noteRequest{TimetableID: "tt-1", SessionID: "sess-1"},
	})
	require.NoError(t, err)
	assert.Empty(t, cache.data)
}

func TestNoteServiceHandleReflection(t *testing.T) {
	svc := NewNoteService(nil, nil, NoteServiceConfig{})

	err := svc.Handle(context.Background(), jobs.Job{
		Type:    jobTypeReflection,
		Payload: reflectionPayload{TimetableID: "tt-1", Date: "2025-03-03", Reflection: "too tired in the evening"},
	})
	assert.NoError(t, err)
}

func TestNoteServiceHandleRejectsUnknownJobs(t *testing.T) {
	svc := NewNoteService(nil, nil, NoteServiceConfig{})

	err := svc.Handle(context.Background(), jobs.Job{Type: "sweep_tables"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job type")
}

func TestNoteServiceHandleRejectsWrongPayloadType(t *testing.T) {
	svc := NewNoteService(nil, nil, NoteServiceConfig{})

	err := svc.Handle(context.Background(), jobs.Job{Type: jobTypeSessionNote, Payload: "not-a-note-request"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected payload type")
}
