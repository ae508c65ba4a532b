package evaluation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidGithubURL(t *testing.T) {
	valid := []string{
		"https://github.com/user/repo",
		"http://github.com/user/repo",
		"https://github.com/user/repo/",
		"https://github.com/some-org/some.repo",
	}
	for _, url := range valid {
		assert.True(t, ValidGithubURL(url), url)
	}

	invalid := []string{
		"https://gitlab.com/user/repo",
		"https://github.com/user",
		"https://github.com/user/repo/tree/main",
		"github.com/user/repo",
		"ftp://github.com/user/repo",
		"",
	}
	for _, url := range invalid {
		assert.False(t, ValidGithubURL(url), url)
	}
}

func TestIsPublic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/team/open":
			w.Write([]byte(`{"private": false}`))
		case "/repos/team/closed":
			w.Write([]byte(`{"private": true}`))
		case "/repos/team/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	v := NewGithubVerifierWithBase(srv.URL)
	ctx := context.Background()

	t.Run("public repo", func(t *testing.T) {
		public, err := v.IsPublic(ctx, "https://github.com/team/open")
		require.NoError(t, err)
		assert.True(t, public)
	})

	t.Run("private repo", func(t *testing.T) {
		public, err := v.IsPublic(ctx, "https://github.com/team/closed")
		require.NoError(t, err)
		assert.False(t, public)
	})

	t.Run("missing repo is false without error", func(t *testing.T) {
		public, err := v.IsPublic(ctx, "https://github.com/team/missing")
		require.NoError(t, err)
		assert.False(t, public)
	})

	t.Run("server error surfaces", func(t *testing.T) {
		_, err := v.IsPublic(ctx, "https://github.com/team/broken")
		assert.Error(t, err)
	})

	t.Run("malformed url is false", func(t *testing.T) {
		public, err := v.IsPublic(ctx, "not-a-url")
		require.NoError(t, err)
		assert.False(t, public)
	})
}
