package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

var (
	githubURLPattern  = regexp.MustCompile(`^https?://github\.com/[^/]+/[^/]+/?$`)
	githubRepoPattern = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+?)/?$`)
)

// ValidGithubURL reports whether the link has the expected repo shape.
func ValidGithubURL(url string) bool {
	return githubURLPattern.MatchString(url)
}

// GithubVerifier classifies a repository as public or not via the GitHub
// API. Best effort with a short timeout; callers treat errors as
// not-public and log a warning.
type GithubVerifier struct {
	baseURL string
	client  *http.Client
}

func NewGithubVerifier() *GithubVerifier {
	return &GithubVerifier{
		baseURL: "https://api.github.com",
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// NewGithubVerifierWithBase is used by tests to point at a stub server.
func NewGithubVerifierWithBase(baseURL string) *GithubVerifier {
	v := NewGithubVerifier()
	v.baseURL = baseURL
	return v
}

// IsPublic returns true only for a reachable repository not marked
// private. A 404 (missing or private repo) is false without error.
func (v *GithubVerifier) IsPublic(ctx context.Context, repoURL string) (bool, error) {
	m := githubRepoPattern.FindStringSubmatch(repoURL)
	if m == nil {
		return false, nil
	}

	apiURL := fmt.Sprintf("%s/repos/%s/%s", v.baseURL, m[1], m[2])
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return false, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			Private bool `json:"private"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false, err
		}
		return !body.Private, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("github api status %d", resp.StatusCode)
	}
}
