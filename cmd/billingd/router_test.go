package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ZilDuck/membership-market/internal/daemon"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatus struct {
	health daemon.Health
	latest *entity.BillingRun
}

func (f fakeStatus) Health() daemon.Health {
	return f.health
}

func (f fakeStatus) Latest() (entity.BillingRun, bool) {
	if f.latest == nil {
		return entity.BillingRun{}, false
	}
	return *f.latest, true
}

func get(t *testing.T, s status, runs repository.BillingRunRepository, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router(s, runs).ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	runs := repository.NewFileBillingRunRepository(t.TempDir())

	rec := get(t, fakeStatus{health: daemon.Health{Healthy: true}}, runs, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = get(t, fakeStatus{health: daemon.Health{LastError: "snapshot failed"}}, runs, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "snapshot failed")
}

func TestLatestRun(t *testing.T) {
	runs := repository.NewFileBillingRunRepository(t.TempDir())

	rec := get(t, fakeStatus{}, runs, "/runs/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	stored := entity.NewBillingRun("stored", time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC), time.Hour)
	require.NoError(t, runs.Save(stored))

	rec = get(t, fakeStatus{}, runs, "/runs/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var run entity.BillingRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "stored", run.Id)

	live := entity.NewBillingRun("live", time.Date(2022, 3, 2, 0, 0, 0, 0, time.UTC), time.Hour)
	rec = get(t, fakeStatus{latest: &live}, runs, "/runs/latest")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "live", run.Id)
}
