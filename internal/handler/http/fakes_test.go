package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/windfall/speakcoach_service/internal/client"
	"github.com/windfall/speakcoach_service/internal/errors"
	"github.com/windfall/speakcoach_service/internal/middleware"
	"github.com/windfall/speakcoach_service/internal/repository"
	"github.com/windfall/speakcoach_service/pkg/response"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	nopLog   = zerolog.Nop()
	testUser = uuid.MustParse("11111111-1111-1111-1111-111111111111")
)

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorBody `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

// serve routes one request through a chi router so path params resolve,
// authenticated as testUser.
func serve(method, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req.WithContext(middleware.WithUserID(req.Context(), testUser)))
	return rec
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var rdr io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type fakeSynth struct {
	audio []byte
	err   error
	calls int
}

func (f *fakeSynth) Synthesize(_ context.Context, _, _ string, _ float64) ([]byte, error) {
	f.calls++
	return f.audio, f.err
}

type memCache struct {
	data map[string][]byte
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

type fakeAssessor struct {
	result *client.Assessment
	err    error
}

func (f *fakeAssessor) Assess(_ context.Context, _ []byte, _ client.AssessOptions) (*client.Assessment, error) {
	return f.result, f.err
}

type memExercises struct {
	rows map[uuid.UUID]repository.Exercise
}

func newMemExercises(rows ...repository.Exercise) *memExercises {
	m := &memExercises{rows: map[uuid.UUID]repository.Exercise{}}
	for _, r := range rows {
		m.rows[r.ID] = r
	}
	return m
}

func (m *memExercises) List(_ context.Context, _ repository.ExerciseFilter) ([]repository.Exercise, int, error) {
	out := make([]repository.Exercise, 0, len(m.rows))
	for _, e := range m.rows {
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *memExercises) GetByID(_ context.Context, id uuid.UUID) (*repository.Exercise, error) {
	e, ok := m.rows[id]
	if !ok {
		return nil, errors.NotFound("exercise")
	}
	return &e, nil
}

func (m *memExercises) Create(_ context.Context, e *repository.Exercise) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.rows[e.ID] = *e
	return nil
}

func (m *memExercises) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.rows[id]; !ok {
		return errors.NotFound("exercise")
	}
	delete(m.rows, id)
	return nil
}

type memProfiles struct {
	rows map[uuid.UUID]repository.Profile
}

func (m *memProfiles) Get(_ context.Context, userID uuid.UUID) (*repository.Profile, error) {
	p, ok := m.rows[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memProfiles) Upsert(_ context.Context, p *repository.Profile) error {
	m.rows[p.ID] = *p
	return nil
}

type memAttempts struct {
	rows      []repository.Attempt
	exportErr error
}

func (m *memAttempts) Create(_ context.Context, a *repository.Attempt) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	m.rows = append(m.rows, *a)
	return nil
}

func (m *memAttempts) GetByID(_ context.Context, userID, id uuid.UUID) (*repository.Attempt, error) {
	for _, a := range m.rows {
		if a.ID == id && a.UserID == userID {
			a := a
			return &a, nil
		}
	}
	return nil, errors.NotFound("attempt")
}

func (m *memAttempts) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]repository.Attempt, error) {
	out := []repository.Attempt{}
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].UserID == userID && (limit <= 0 || len(out) < limit) {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *memAttempts) ListSince(_ context.Context, userID uuid.UUID, since time.Time) ([]repository.Attempt, error) {
	out := []repository.Attempt{}
	for _, a := range m.rows {
		if a.UserID == userID && !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAttempts) Export(_ context.Context, _ repository.AttemptExportFilter, fn func(repository.Attempt) error) error {
	if m.exportErr != nil {
		return m.exportErr
	}
	for _, a := range m.rows {
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}

func (m *memAttempts) Overview(_ context.Context, since time.Time) (*repository.AttemptOverview, error) {
	return &repository.AttemptOverview{Since: since, TotalAttempts: len(m.rows)}, nil
}

type memConversations struct {
	convs  map[uuid.UUID]repository.Conversation
	msgs   map[uuid.UUID][]repository.Message
	nextID int64
}

func newMemConversations() *memConversations {
	return &memConversations{
		convs: map[uuid.UUID]repository.Conversation{},
		msgs:  map[uuid.UUID][]repository.Message{},
	}
}

func (m *memConversations) Create(_ context.Context, c *repository.Conversation) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.convs[c.ID] = *c
	return nil
}

func (m *memConversations) Get(_ context.Context, userID, id uuid.UUID) (*repository.Conversation, error) {
	c, ok := m.convs[id]
	if !ok || c.UserID != userID {
		return nil, errors.NotFound("conversation")
	}
	return &c, nil
}

func (m *memConversations) AppendMessages(_ context.Context, convID uuid.UUID, msgs ...repository.Message) error {
	for _, msg := range msgs {
		m.nextID++
		msg.ID = m.nextID
		msg.ConversationID = convID
		m.msgs[convID] = append(m.msgs[convID], msg)
	}
	return nil
}

func (m *memConversations) RecentMessages(_ context.Context, convID uuid.UUID, limit int) ([]repository.Message, error) {
	all := m.msgs[convID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]repository.Message(nil), all...), nil
}
