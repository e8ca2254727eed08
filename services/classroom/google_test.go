package classroomsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/classroom"
)

func newTestClient(t *testing.T, handler http.Handler) *googleClient {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &googleClient{baseURL: srv.URL, http: srv.Client()}
}

func TestGoogleClient_ListCourses_pagination(t *testing.T) {
	ctx := context.Background()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/courses", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = w.Write([]byte(`{"courses":[{"id":"c1","name":"Maths"}],"nextPageToken":"p2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"courses":[{"id":"c2","name":"Physics"}]}`))
	}))

	courses, err := c.ListCourses(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "c1", courses[0].ID)
	assert.Equal(t, "c2", courses[1].ID)
}

func TestGoogleClient_GetProfile(t *testing.T) {
	ctx := context.Background()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/userProfiles/g1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"g1","name":{"fullName":"Awa Cisse"},"emailAddress":"awa@test.cd"}`))
	}))

	p, err := c.GetProfile(ctx, "tok", "g1")
	require.NoError(t, err)
	assert.Equal(t, classroom.Profile{ID: "g1", Name: "Awa Cisse", Email: "awa@test.cd"}, p)
}

func TestGoogleClient_CreateInvitation(t *testing.T) {
	ctx := context.Background()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/invitations", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "c1", body["courseId"])
		assert.Equal(t, "awa@test.cd", body["userId"])
		assert.Equal(t, "STUDENT", body["role"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"inv1"}`))
	}))

	assert.NoError(t, c.CreateInvitation(ctx, "tok", "c1", "awa@test.cd"))
}

func TestGoogleClient_errorMapping(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "401",
			status: http.StatusUnauthorized,
			body:   `{}`,
			check: func(t *testing.T, err error) {
				assert.Equal(t, classroom.ErrUnauthorized, err)
			},
		},
		{
			name:   "403",
			status: http.StatusForbidden,
			body:   `{}`,
			check: func(t *testing.T, err error) {
				assert.Equal(t, classroom.ErrUnauthorized, err)
			},
		},
		{
			name:   "404",
			status: http.StatusNotFound,
			body:   `{}`,
			check: func(t *testing.T, err error) {
				assert.Equal(t, classroom.ErrNotFound, err)
			},
		},
		{
			name:   "api error body",
			status: http.StatusConflict,
			body:   `{"error":{"code":409,"message":"already exists","status":"ALREADY_EXISTS"}}`,
			check: func(t *testing.T, err error) {
				apiErr, ok := err.(*classroom.APIError)
				require.True(t, ok, "want *APIError, got %v", err)
				assert.Equal(t, 409, apiErr.Code)
				assert.Equal(t, "already exists", apiErr.Message)
			},
		},
		{
			name:   "opaque error body",
			status: http.StatusTeapot,
			body:   `not json`,
			check: func(t *testing.T, err error) {
				apiErr, ok := err.(*classroom.APIError)
				require.True(t, ok, "want *APIError, got %v", err)
				assert.Equal(t, http.StatusTeapot, apiErr.Code)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			_, err := c.GetCourse(ctx, "tok", "c1")
			require.Error(t, err)
			tt.check(t, err)
		})
	}

	t.Run("unreachable host", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()
		c := &googleClient{baseURL: srv.URL, http: http.DefaultClient}

		_, err := c.GetCourse(ctx, "tok", "c1")
		_, ok := err.(*classroom.TransientError)
		require.True(t, ok, "want *TransientError, got %v", err)
	})
}
