package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aphidlab/inference-gateway/internal/auth"
)

func seedRecords(t *testing.T, st *fakeStore) {
	t.Helper()
	st.records["20250101T000000000001Z_aaaaaaaaaa.json"] = []byte(`{"request_id":"20250101T000000000001Z_aaaaaaaaaa","count":1}`)
	st.records["20250102T000000000001Z_bbbbbbbbbb.json"] = []byte(`{"request_id":"20250102T000000000001Z_bbbbbbbbbb","count":2}`)
	st.records["20250103T000000000001Z_cccccccccc.json"] = []byte(`{not json at all`)
}

func doHistory(s *Server, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

func adminHeaders() map[string]string {
	return map[string]string{"X-Admin-Token": "s3cret"}
}

func TestHistoryRequiresAuth(t *testing.T) {
	s := newTestServer(&fakeDetector{}, newFakeStore(), nil)

	t.Run("no credential", func(t *testing.T) {
		rec := doHistory(s, "/admin/history", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		rec := doHistory(s, "/admin/history", map[string]string{"X-Admin-Token": "nope"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHistoryBearerModeWithoutPolicy(t *testing.T) {
	verifier := &allowAllVerifier{}
	authorizer := auth.NewBearerAuthorizer(verifier, auth.NewPolicy(nil, nil, nil))
	s := newTestServer(&fakeDetector{}, newFakeStore(), authorizer)

	rec := doHistory(s, "/admin/history", map[string]string{"Authorization": "Bearer token"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type allowAllVerifier struct{}

func (*allowAllVerifier) Verify(_ context.Context, _ string) (*auth.Claims, error) {
	return &auth.Claims{ObjectID: "user-1"}, nil
}

func TestHistoryToleratesCorruptedRecord(t *testing.T) {
	st := newFakeStore()
	seedRecords(t, st)
	s := newTestServer(&fakeDetector{}, st, nil)

	rec := doHistory(s, "/admin/history", adminHeaders())
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[historyResponse](t, rec)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, 50, resp.Limit)
	require.Len(t, resp.Records, 3)

	// Newest first; the corrupted record is inlined, not dropped.
	corrupted, ok := resp.Records[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "20250103T000000000001Z_cccccccccc.json", corrupted["history_blob_name"])
	assert.Contains(t, corrupted, "error")

	valid, ok := resp.Records[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "20250102T000000000001Z_bbbbbbbbbb", valid["request_id"])
}

func TestHistoryLimitReturnsNewest(t *testing.T) {
	st := newFakeStore()
	seedRecords(t, st)
	s := newTestServer(&fakeDetector{}, st, nil)

	rec := doHistory(s, "/admin/history?limit=1", adminHeaders())
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[historyResponse](t, rec)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, 1, resp.Limit)
	require.Len(t, resp.Records, 1)
	record, ok := resp.Records[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "20250103T000000000001Z_cccccccccc.json", record["history_blob_name"])
}

func TestHistoryLimitValidation(t *testing.T) {
	s := newTestServer(&fakeDetector{}, newFakeStore(), nil)

	for _, limit := range []string{"0", "201", "-5", "ten"} {
		rec := doHistory(s, "/admin/history?limit="+limit, adminHeaders())
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestHistoryWithoutStore(t *testing.T) {
	s := newTestServer(&fakeDetector{}, nil, nil)
	rec := doHistory(s, "/admin/history", adminHeaders())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHistoryListFailure(t *testing.T) {
	st := newFakeStore()
	st.failList = true
	s := newTestServer(&fakeDetector{}, st, nil)

	rec := doHistory(s, "/admin/history", adminHeaders())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
