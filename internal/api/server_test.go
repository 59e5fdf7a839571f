package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MD412/project-arceus/internal/model"
	"github.com/MD412/project-arceus/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *testutil.TestDB) {
	t.Helper()
	db := testutil.SetupTestDB(t, testutil.InboxScenario())
	srv, err := NewServer(db.Storage, prometheus.NewRegistry())
	require.NoError(t, err)
	return srv, db
}

func serve(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Inbox(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(t, srv, http.MethodGet, "/api/v1/inbox", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []model.InboxEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "A", entries[0].ScanID)
	assert.Equal(t, 3, entries[0].TotalDetections)
	assert.Equal(t, 0, entries[1].TotalDetections)
	assert.Equal(t, 5, entries[2].TotalDetections)
}

func TestServer_Detections(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(t, srv, http.MethodGet, "/api/v1/scans/A/detections", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var detections []model.Detection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detections))
	require.Len(t, detections, 3)
	assert.True(t, detections[0].IsIdentified())
	assert.False(t, detections[1].IsIdentified())

	rec = serve(t, srv, http.MethodGet, "/api/v1/scans/missing/detections", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"not_found"`)
}

func TestServer_Search(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(t, srv, http.MethodGet, "/api/v1/cards/search?q=p", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = serve(t, srv, http.MethodGet, "/api/v1/cards/search?q=pikachu", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var results []model.CardCandidate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	assert.Len(t, results, 2)
}

func TestServer_ApproveAndLock(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(t, srv, http.MethodPost, "/api/v1/scans/A/approve", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"approved_count":2}`, rec.Body.String())

	rec = serve(t, srv, http.MethodPut, "/api/v1/detections/A-d1/card", `{"card_id":"fossil-15"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "scan_locked")

	assert.InDelta(t, 2, promtestutil.ToFloat64(srv.Metrics().CardsApproved), 0.001)
	assert.InDelta(t, 1, promtestutil.ToFloat64(srv.Metrics().ActionsTotal.WithLabelValues("approve", "success")), 0.001)
}

func TestServer_Correct(t *testing.T) {
	srv, db := newTestServer(t)

	rec := serve(t, srv, http.MethodPut, "/api/v1/detections/C-d1/card", `{"card_id":"fossil-15"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	detections, err := db.Storage.ListDetections(context.Background(), "C")
	require.NoError(t, err)
	card, ok := detections[1].IdentifiedCard()
	require.True(t, ok)
	assert.Equal(t, "fossil-15", card.ID)

	rec = serve(t, srv, http.MethodPut, "/api/v1/detections/C-d1/card", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cardid is required")
}

func TestServer_StatusRenameDelete(t *testing.T) {
	srv, db := newTestServer(t)

	rec := serve(t, srv, http.MethodPut, "/api/v1/scans/B/status", `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_status")

	rec = serve(t, srv, http.MethodPut, "/api/v1/scans/B/status", `{"status":"rejected"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, srv, http.MethodPatch, "/api/v1/scans/C", `{"title":"Binder page 9"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	scan, err := db.Storage.GetScan(context.Background(), "C")
	require.NoError(t, err)
	assert.Equal(t, "Binder page 9", scan.Title)

	rec = serve(t, srv, http.MethodDelete, "/api/v1/scans/C", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(t, srv, http.MethodDelete, "/api/v1/scans/C", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, srv, http.MethodGet, "/api/v1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []model.Scan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "B", history[0].ID)
}

func TestServer_RejectOnlyWhileAwaitingReview(t *testing.T) {
	srv, db := newTestServer(t)
	db.Seed(testutil.Fixture{Scans: []testutil.ScanFixture{
		testutil.ScanAt("done", model.ScanCompleted, 2, 3),
	}})

	rec := serve(t, srv, http.MethodPost, "/api/v1/scans/C/reject", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(t, srv, http.MethodPost, "/api/v1/scans/C/reject", "")
	assert.Equal(t, http.StatusNoContent, rec.Code, "a retried discard succeeds")

	rec = serve(t, srv, http.MethodPost, "/api/v1/scans/done/reject", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"not_reviewable"`)

	rec = serve(t, srv, http.MethodPost, "/api/v1/scans/A/approve", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = serve(t, srv, http.MethodPut, "/api/v1/scans/A/status", `{"status":"rejected"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "approved scans stay approved")

	scan, err := db.Storage.GetScan(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, model.ScanReviewPending, scan.Status)
	assert.NotNil(t, scan.ApprovedAt)

	assert.InDelta(t, 2, promtestutil.ToFloat64(srv.Metrics().ActionsTotal.WithLabelValues("discard", "success")), 0.001)
	assert.InDelta(t, 2, promtestutil.ToFloat64(srv.Metrics().ActionsTotal.WithLabelValues("discard", "error")), 0.001)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	serve(t, srv, http.MethodGet, "/api/v1/inbox", "")

	rec := serve(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `arceus_http_requests_total{method="GET",route="/api/v1/inbox",status="200"} 1`)
}
