package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kompello/kompello-console/internal/platform/httpx"
)

type snapshotUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type snapshotBody struct {
	Phase          string        `json:"phase"`
	SessionLoading *bool         `json:"session_loading"`
	Authenticated  bool          `json:"authenticated"`
	Generation     uint64        `json:"generation"`
	User           *snapshotUser `json:"user"`
}

// SnapshotHandler serves the auth state as JSON. With ?wait=1 it waits up to
// maxWait for a loading state to resolve. session_loading is null before the
// first check.
func SnapshotHandler(state StateReader, maxWait time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := state.Read()
		if r.URL.Query().Get("wait") == "1" && snap.Phase != PhaseResolved && maxWait > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), maxWait)
			settled, err := state.Wait(ctx)
			cancel()
			if errors.Is(err, ErrStoreClosed) {
				httpx.RespondError(w, httpx.ErrUnavailable)
				return
			}
			snap = settled
		}
		httpx.JSON(w, http.StatusOK, encodeSnapshot(snap))
	}
}

func encodeSnapshot(snap Snapshot) snapshotBody {
	body := snapshotBody{
		Phase:         snap.Phase.String(),
		Authenticated: snap.Authenticated(),
		Generation:    snap.Generation,
	}
	if loading, known := snap.SessionLoading(); known {
		body.SessionLoading = &loading
	}
	if snap.User != nil {
		body.User = &snapshotUser{
			ID:          snap.User.ID.String(),
			DisplayName: snap.User.DisplayName,
			Email:       snap.User.Email,
		}
	}
	return body
}
