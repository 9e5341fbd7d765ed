package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Star2578/AINA/internal/analysis/emotion"
	"github.com/Star2578/AINA/internal/model/chat"
	"github.com/Star2578/AINA/internal/model/emote"
	chatservice "github.com/Star2578/AINA/internal/service/chat"
	"github.com/Star2578/AINA/internal/service/classify"
	"github.com/Star2578/AINA/internal/service/dispatch"
)

type stubClassifier struct {
	result classify.Result
	err    error
}

func (s *stubClassifier) Classify(_ context.Context, _ string) (classify.Result, error) {
	if s.err != nil {
		return classify.Result{}, s.err
	}
	return s.result, nil
}

type stubGenerator struct {
	chunks []string
	err    error
}

func (s *stubGenerator) GenerateReply(_ context.Context, _ chat.ChatRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return strings.Join(s.chunks, ""), nil
}

func (s *stubGenerator) StreamReply(_ context.Context, _ chat.ChatRequest) (*schema.StreamReader[*schema.Message], error) {
	if s.err != nil {
		return nil, s.err
	}
	msgs := make([]*schema.Message, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		msgs = append(msgs, schema.AssistantMessage(chunk, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

func setupStream(t *testing.T, cls classify.Classifier, gen dispatch.Generator) (*chi.Mux, chat.Session) {
	t.Helper()

	registry, err := emote.NewRegistry(emote.Seed())
	require.NoError(t, err)

	sessions := chatservice.NewService()
	session, err := sessions.CreateSession(context.Background(), "tinyllama")
	require.NoError(t, err)

	controller := dispatch.NewController(cls, gen, sessions, registry, zap.NewNop())
	handler := New(controller, zap.NewNop())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, session
}

func TestStreamHappyPath(t *testing.T) {
	cls := &stubClassifier{result: classify.Result{Label: emotion.Idle, Confidence: 0.9}}
	gen := &stubGenerator{chunks: []string{"ดีใจ", "ด้วยนะ"}}
	r, session := setupStream(t, cls, gen)

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID+"/stream?message=ฉันมีความสุขมาก", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "text/event-stream", resp.Header().Get("Content-Type"))

	body := resp.Body.String()
	require.Contains(t, body, `"event":"start"`)
	require.Contains(t, body, `"event":"delta"`)
	require.Contains(t, body, "ดีใจ")
	require.Contains(t, body, `"event":"message"`)
	require.Contains(t, body, `"event":"emotion"`)
	require.Contains(t, body, `"emotion":"idle"`)
	require.Contains(t, body, `"event":"end"`)
	require.NotContains(t, body, `"event":"error"`)
}

func TestStreamMissingMessageParam(t *testing.T) {
	r, session := setupStream(t, &stubClassifier{}, &stubGenerator{})

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID+"/stream", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestStreamClassifierFailureEmitsErrorEvent(t *testing.T) {
	cls := &stubClassifier{err: classify.ErrUnavailable}
	r, session := setupStream(t, cls, &stubGenerator{chunks: []string{"x"}})

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID+"/stream?message=สวัสดี", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	body := resp.Body.String()
	require.Contains(t, body, `"event":"error"`)
	require.Contains(t, body, string(dispatch.ErrorClassifierUnavailable))
	// A failed turn never carries an emote.
	require.NotContains(t, body, `"event":"emotion"`)
}
