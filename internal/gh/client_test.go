package gh

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v71/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient points a Client at a local test server.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ghc := github.NewClient(srv.Client())
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	ghc.BaseURL = base

	return newClient(ghc, srv.Client())
}

// shortRetryDelays shrinks the backoff so retry tests finish quickly.
func shortRetryDelays(t *testing.T) {
	t.Helper()
	oldBase, oldStep := rateLimitBaseDelay, rateLimitDelayStep
	rateLimitBaseDelay, rateLimitDelayStep = time.Millisecond, time.Millisecond
	t.Cleanup(func() {
		rateLimitBaseDelay, rateLimitDelayStep = oldBase, oldStep
	})
}

func TestUserIsFetchedOnceForRepeatedCalls(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"login":"octocat","id":583231}`)
	})

	client := testClient(t, mux)
	ctx := t.Context()

	user, err := client.User(ctx, "octocat")
	require.NoError(t, err)
	assert.Equal(t, "octocat", user.GetLogin())

	again, err := client.User(ctx, "octocat")
	require.NoError(t, err)
	assert.Equal(t, user.GetLogin(), again.GetLogin())
	assert.Equal(t, int32(1), hits.Load())
}

func TestPullRequestsByAuthorUsesSearchQuery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "author:octocat type:pr", r.URL.Query().Get("q"))
		assert.Equal(t, "50", r.URL.Query().Get("per_page"))
		fmt.Fprint(w, `{"total_count":2,"items":[
			{"number":1,"title":"first","html_url":"https://example.com/1"},
			{"number":2,"title":"second","html_url":"https://example.com/2"}
		]}`)
	})

	client := testClient(t, mux)

	issues, err := client.PullRequestsByAuthor(t.Context(), "octocat")
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "first", issues[0].GetTitle())
	assert.Equal(t, "https://example.com/2", issues[1].GetHTMLURL())
}

func TestAllPullRequestsFetchesDetailsInListOrder(t *testing.T) {
	var listHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/hello-world/pulls", func(w http.ResponseWriter, r *http.Request) {
		listHits.Add(1)
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		fmt.Fprint(w, `[{"number":3,"title":"three"},{"number":1,"title":"one"}]`)
	})
	mux.HandleFunc("/repos/octocat/hello-world/pulls/3", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"number":3,"title":"three","additions":30,"deletions":3,"changed_files":2}`)
	})
	mux.HandleFunc("/repos/octocat/hello-world/pulls/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"number":1,"title":"one","additions":10,"deletions":1,"changed_files":1}`)
	})

	client := testClient(t, mux)
	ctx := t.Context()

	prs, err := client.AllPullRequests(ctx, "octocat", "hello-world")
	require.NoError(t, err)
	require.Len(t, prs, 2)

	// List order is preserved and the detail records carry the counts that
	// the list records lack.
	assert.Equal(t, 3, prs[0].GetNumber())
	assert.Equal(t, 30, prs[0].GetAdditions())
	assert.Equal(t, 1, prs[1].GetNumber())
	assert.Equal(t, 10, prs[1].GetAdditions())

	_, err = client.AllPullRequests(ctx, "octocat", "hello-world")
	require.NoError(t, err)
	assert.Equal(t, int32(1), listHits.Load())
}

func TestPullRequestCodeFlattensCommitsAndCachesBlobs(t *testing.T) {
	var rawAHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/hello-world/pulls/7/commits", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"sha":"abc"},{"sha":"def"}]`)
	})
	mux.HandleFunc("/repos/octocat/hello-world/commits/abc", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"sha":"abc","files":[
			{"filename":"main.go","status":"added","raw_url":"http://%s/raw/main.go"}
		]}`, r.Host)
	})
	mux.HandleFunc("/repos/octocat/hello-world/commits/def", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"sha":"def","files":[
			{"filename":"main.go","status":"modified","raw_url":"http://%s/raw/main.go"},
			{"filename":"util.go","status":"added","raw_url":"http://%s/raw/util.go"}
		]}`, r.Host, r.Host)
	})
	mux.HandleFunc("/raw/main.go", func(w http.ResponseWriter, r *http.Request) {
		rawAHits.Add(1)
		fmt.Fprint(w, "package main")
	})
	mux.HandleFunc("/raw/util.go", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "package util")
	})

	client := testClient(t, mux)

	files, err := client.PullRequestCode(t.Context(), "octocat", "hello-world", 7)
	require.NoError(t, err)
	require.Len(t, files, 3)

	// Flattened in commit order, file order within each commit; the file
	// touched by both commits appears twice.
	assert.Equal(t, FileDiff{Filename: "main.go", Status: "added", SHA: "abc", Code: "package main"}, files[0])
	assert.Equal(t, FileDiff{Filename: "main.go", Status: "modified", SHA: "def", Code: "package main"}, files[1])
	assert.Equal(t, FileDiff{Filename: "util.go", Status: "added", SHA: "def", Code: "package util"}, files[2])

	// The recurring blob was downloaded once.
	assert.Equal(t, int32(1), rawAHits.Load())
}

func TestRetryRecoversFromRateLimit(t *testing.T) {
	shortRetryDelays(t)

	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/users/flaky", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"message":"API rate limit exceeded"}`)
			return
		}
		fmt.Fprint(w, `{"login":"flaky"}`)
	})

	client := testClient(t, mux)

	user, err := client.User(t.Context(), "flaky")
	require.NoError(t, err)
	assert.Equal(t, "flaky", user.GetLogin())
	assert.Equal(t, int32(3), hits.Load())
}

func TestRetryGivesUpAfterCeiling(t *testing.T) {
	shortRetryDelays(t)

	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/users/throttled", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"API rate limit exceeded"}`)
	})

	client := testClient(t, mux)

	_, err := client.User(t.Context(), "throttled")
	require.Error(t, err)
	// Initial attempt plus five retries.
	assert.Equal(t, int32(6), hits.Load())
}

func TestNonRateLimitFailuresAreNotRetried(t *testing.T) {
	shortRetryDelays(t)

	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/users/missing", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})

	client := testClient(t, mux)

	_, err := client.User(t.Context(), "missing")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestBackoffGrowsLinearly(t *testing.T) {
	assert.Equal(t, 5*time.Second, rateLimitBaseDelay+0*rateLimitDelayStep)
	assert.Equal(t, 8*time.Second, rateLimitBaseDelay+1*rateLimitDelayStep)
	assert.Equal(t, 17*time.Second, rateLimitBaseDelay+4*rateLimitDelayStep)
}
