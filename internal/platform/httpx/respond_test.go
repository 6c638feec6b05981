package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsTaxonomy(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("template: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: name", ErrValidation), http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrConflict, http.StatusConflict},
		{fmt.Errorf("surface: %w", ErrUnavailable), http.StatusServiceUnavailable},
		{errors.New("relation \"sales\" does not exist"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		require.Equal(t, tc.code, rr.Code, tc.err.Error())

		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		require.Equal(t, tc.code, body.Status)
		require.Equal(t, tc.err.Error(), body.Detail)
		require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	}
}
