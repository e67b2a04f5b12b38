package jobs

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHandler(t *testing.T) (*Handler, *asynq.Inspector) {
	t.Helper()
	mr := miniredis.RunT(t)
	opts := asynq.RedisClientOpt{Addr: mr.Addr()}
	client := NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	inspector := asynq.NewInspector(opts)
	t.Cleanup(func() { _ = inspector.Close() })
	return NewHandler(inspector, client, slog.Default()), inspector
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.MountRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestTriggerLedgerIntegrity(t *testing.T) {
	h, inspector := testHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/jobs/ledger-integrity", strings.NewReader(`{"repair":false}`))
	rec := serve(h, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "task_id")

	info, err := inspector.GetQueueInfo(QueueDefault)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Pending)
}

func TestTriggerLedgerIntegrityEmptyBody(t *testing.T) {
	h, _ := testHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/jobs/ledger-integrity", nil)
	rec := serve(h, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestTriggerLedgerIntegrityBadBody(t *testing.T) {
	h, _ := testHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/jobs/ledger-integrity", strings.NewReader("{not json"))
	rec := serve(h, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerLedgerIntegrityWithoutClient(t *testing.T) {
	h := NewHandler(nil, nil, slog.Default())

	req := httptest.NewRequest(http.MethodPost, "/jobs/ledger-integrity", nil)
	rec := serve(h, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
