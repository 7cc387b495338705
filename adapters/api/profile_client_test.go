package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *ProfileClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewProfileClient(srv.URL+"/", 2*time.Second, logger.NewNopLogger())
}

func TestProfileClient_Get(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/profile", r.URL.Path)
		io.WriteString(w, `{"success":true,"data":{"full_name":"A B","skills":["x","y"],"projects":[]}}`)
	})

	p, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A B", p.FullName)
	assert.Equal(t, []string{"x", "y"}, p.Skills)
	assert.Empty(t, p.Projects)
}

func TestProfileClient_GetErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"success false", http.StatusOK, `{"success":false,"error":"profile missing"}`, apperror.ErrApplication},
		{"success false with 404", http.StatusNotFound, `{"success":false,"error":"profile missing"}`, apperror.ErrApplication},
		{"html 500", http.StatusInternalServerError, `<html>oops</html>`, apperror.ErrUpstream},
		{"no envelope", http.StatusOK, `{"full_name":"A"}`, apperror.ErrUpstream},
		{"no data", http.StatusOK, `{"success":true}`, apperror.ErrApplication},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			_, err := c.Get(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestProfileClient_GetUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewProfileClient(url, time.Second, logger.NewNopLogger())
	_, err := c.Get(context.Background())
	assert.ErrorIs(t, err, apperror.ErrUpstream)
}

func TestProfileClient_GetTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Get(ctx)
	assert.ErrorIs(t, err, apperror.ErrUpstream)
}

func TestProfileClient_Update(t *testing.T) {
	var got profile.Profile
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"success":true}`)
	})

	err := c.Update(context.Background(), &profile.Profile{FullName: "A B", Skills: []string{"go"}})
	require.NoError(t, err)
	assert.Equal(t, "A B", got.FullName)
	assert.Equal(t, []string{"go"}, got.Skills)
}

func TestProfileClient_UpdateConflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":false,"error":"conflict"}`)
	})

	err := c.Update(context.Background(), &profile.Profile{})
	require.ErrorIs(t, err, apperror.ErrApplication)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "conflict", appErr.Message)
}

func TestProfileClient_Export(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/profile/export", r.URL.Path)
		io.WriteString(w, `{"full_name":"A B","export_info":{"version":"1.0"}}`)
	})

	payload, err := c.Export(context.Background())
	require.NoError(t, err)
	assert.True(t, payload.HasExportInfo())
	assert.JSONEq(t, `"A B"`, string(payload["full_name"]))
}

func TestProfileClient_ExportFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"success":false,"error":"profile not found"}`)
	})

	_, err := c.Export(context.Background())
	assert.ErrorIs(t, err, apperror.ErrApplication)
}
