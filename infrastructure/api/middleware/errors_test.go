package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fireclub/semsearch/application/service"
)

func TestWriteError_StatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrNotFound, 404},
		{service.ErrBadRequest, 400},
		{service.ErrUnavailable, 503},
		{service.ErrConflict, 409},
		{service.ErrInternal, 500},
		{errors.New("unclassified"), 500},
		{fmt.Errorf("%w: product 7", service.ErrNotFound), 404},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, tc.err)

		assert.Equal(t, tc.status, rec.Code, "error %v", tc.err)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.err.Error(), body.Error)
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, 201, map[string]string{"mensaje": "ok"})

	assert.Equal(t, 201, rec.Code)
	assert.JSONEq(t, `{"mensaje":"ok"}`, rec.Body.String())
}
