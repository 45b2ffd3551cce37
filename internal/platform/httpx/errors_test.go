package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-api/gatehouse/internal/shared"
)

func TestRespondErrorMapsTaxonomy(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{
			name:       "invalid input",
			err:        fmt.Errorf("%w: password must be at least 8 characters", shared.ErrInvalidInput),
			wantStatus: http.StatusBadRequest,
			wantDetail: "invalid input: password must be at least 8 characters",
		},
		{
			name:       "unauthenticated is opaque",
			err:        fmt.Errorf("%w: signature mismatch for token abc", shared.ErrUnauthenticated),
			wantStatus: http.StatusUnauthorized,
			wantDetail: "could not validate credentials",
		},
		{
			name:       "forbidden",
			err:        fmt.Errorf("%w: user is blocked", shared.ErrForbidden),
			wantStatus: http.StatusForbidden,
			wantDetail: "forbidden: user is blocked",
		},
		{
			name:       "not found",
			err:        fmt.Errorf("%w: role 42", shared.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantDetail: "not found: role 42",
		},
		{
			name:       "conflict",
			err:        fmt.Errorf("%w: email already registered", shared.ErrConflict),
			wantStatus: http.StatusConflict,
			wantDetail: "conflict: email already registered",
		},
		{
			name:       "unknown error is opaque",
			err:        errors.New(`pq: connection refused dsn="postgres://admin:secret@db"`),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)

			require.Equal(t, tc.wantStatus, rec.Code)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var problem ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			require.Equal(t, tc.wantStatus, problem.Status)
			require.Equal(t, tc.wantDetail, problem.Detail)
		})
	}
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	type payload struct {
		Email string `json:"email"`
	}

	r := httptest.NewRequest("POST", "/users", nil)
	r.Body = http.NoBody
	var p payload
	require.Error(t, DecodeJSON(r, &p))

	r = httptest.NewRequest("POST", "/users",
		jsonBody(t, map[string]string{"email": "a@b.co", "extra": "x"}))
	require.Error(t, DecodeJSON(r, &p))

	r = httptest.NewRequest("POST", "/users",
		jsonBody(t, map[string]string{"email": "a@b.co"}))
	require.NoError(t, DecodeJSON(r, &p))
	require.Equal(t, "a@b.co", p.Email)
}
