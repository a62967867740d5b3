package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closedState struct{}

func (closedState) Read() Snapshot { return Snapshot{Phase: PhaseLoading} }

func (closedState) Wait(context.Context) (Snapshot, error) {
	return Snapshot{Phase: PhaseLoading}, ErrStoreClosed
}

func getSnapshot(t *testing.T, state StateReader, target string) (int, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	SnapshotHandler(state, 50*time.Millisecond).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	if rr.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	}
	return rr.Code, body
}

func TestSnapshotBeforeFirstCheck(t *testing.T) {
	code, body := getSnapshot(t, &fixedState{snap: Snapshot{Phase: PhaseUninitialized}}, "/api/session")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "uninitialized", body["phase"])
	assert.Nil(t, body["session_loading"])
	assert.Equal(t, false, body["authenticated"])
	assert.Nil(t, body["user"])
}

func TestSnapshotResolvedUser(t *testing.T) {
	state := &fixedState{snap: Snapshot{Phase: PhaseResolved, Generation: 3, User: alice()}}
	code, body := getSnapshot(t, state, "/api/session")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["session_loading"])
	assert.Equal(t, true, body["authenticated"])
	assert.EqualValues(t, 3, body["generation"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Alice", user["display_name"])
	assert.Zero(t, state.waits)
}

func TestSnapshotWaitsWhenAsked(t *testing.T) {
	settled := Snapshot{Phase: PhaseResolved}
	state := &fixedState{snap: Snapshot{Phase: PhaseLoading}, settled: &settled}

	_, body := getSnapshot(t, state, "/api/session?wait=1")
	assert.Equal(t, 1, state.waits)
	assert.Equal(t, "resolved", body["phase"])
}

func TestSnapshotOfClosedStore(t *testing.T) {
	code, _ := getSnapshot(t, closedState{}, "/api/session?wait=1")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
