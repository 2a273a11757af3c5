package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer_RouterServesRegisteredRoutes(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)
	s.Router().Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RecovererCatchesPanics(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)
	s.Router().Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("handler failure")
	})

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/boom")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestServer_Addr(t *testing.T) {
	s := NewServer("0.0.0.0:8002", nil)
	assert.Equal(t, "0.0.0.0:8002", s.Addr())
}

func TestServer_ShutdownBeforeStartIsNoOp(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)
	require.NoError(t, s.Shutdown(context.Background()))
}
