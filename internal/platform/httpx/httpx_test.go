package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kompello/kompello-console/internal/shared"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := map[error]int{
		shared.ErrNotFound:                                    http.StatusNotFound,
		shared.ErrCSRFTokenMismatch:                           http.StatusForbidden,
		fmt.Errorf("load: %w", shared.ErrUpstreamUnavailable): http.StatusBadGateway,
		ErrUnavailable:                                        http.StatusServiceUnavailable,
		fmt.Errorf("boom"):                                    http.StatusInternalServerError,
	}
	for err, status := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, err)
		assert.Equal(t, status, rr.Code, err.Error())
		assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

		var problem ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
		assert.Equal(t, status, problem.Status)
	}
}

func TestInternalErrorsHideDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("dial tcp 10.0.0.1:5432: refused"))

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Empty(t, problem.Detail)
}
