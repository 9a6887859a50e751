package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udms-pro/udms/internal/shared"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := map[error]int{
		shared.ErrUnauthenticated:   http.StatusUnauthorized,
		shared.ErrPermissionDenied:  http.StatusForbidden,
		shared.ErrLockedOut:         http.StatusLocked,
		shared.ErrNotFound:          http.StatusNotFound,
		shared.ErrCapacityExceeded:  http.StatusConflict,
		shared.ErrAlreadySettled:    http.StatusConflict,
		shared.ErrInvalidTransition: http.StatusConflict,
		shared.ErrValidation:        http.StatusBadRequest,
		errors.New("boom"):          http.StatusInternalServerError,
	}
	for err, want := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, fmt.Errorf("wrapped: %w", err))
		assert.Equal(t, want, rec.Code, err.Error())
		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, want, body.Status)
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("dial tcp 10.0.0.1: refused"))
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
}

func TestDecodeJSONValidates(t *testing.T) {
	type payload struct {
		Name string `json:"name" validate:"required"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))
	var p payload
	assert.ErrorIs(t, DecodeJSON(req, &p), shared.ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	assert.ErrorIs(t, DecodeJSON(req, &p), shared.ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, DecodeJSON(req, &p))
	assert.Equal(t, "x", p.Name)
}
