// Package gh adapts the GitHub REST API behind rate-limit aware, memoized
// calls.
package gh

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/go-github/v71/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/just-nibble/pr-tracker/internal/cache"
)

// FileDiff is one file touched by one commit of a pull request, with the raw
// file content at that commit inlined. A file touched by several commits
// appears once per commit.
type FileDiff struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	SHA      string `json:"sha"`
	Code     string `json:"code"`
}

// Client wraps the GitHub API. Every call runs through the retry policy and
// is memoized in a per-client cache, so repeated requests for the same key
// never leave the process twice.
type Client struct {
	gh    *github.Client
	http  *http.Client
	cache *cache.Cache
}

// NewClient creates a Client authenticated with a personal access token.
func NewClient(token string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)
	return newClient(github.NewClient(tc), &http.Client{Timeout: 10 * time.Second})
}

func newClient(ghc *github.Client, httpClient *http.Client) *Client {
	return &Client{
		gh:    ghc,
		http:  httpClient,
		cache: cache.New(),
	}
}

// User fetches a user profile by username.
func (c *Client) User(ctx context.Context, username string) (*github.User, error) {
	return cache.GetOrCompute(c.cache, "user:"+username, func() (*github.User, error) {
		var user *github.User
		err := withRetry(ctx, "users.get", func() error {
			u, _, err := c.gh.Users.Get(ctx, username)
			if err != nil {
				return err
			}
			user = u
			return nil
		})
		return user, err
	})
}

// Repos lists repositories owned by username. A single page of up to 100
// repositories is returned; callers accept that ceiling.
func (c *Client) Repos(ctx context.Context, username string) ([]*github.Repository, error) {
	return cache.GetOrCompute(c.cache, "repos:"+username, func() ([]*github.Repository, error) {
		var repos []*github.Repository
		err := withRetry(ctx, "repos.listByUser", func() error {
			rs, _, err := c.gh.Repositories.ListByUser(ctx, username, &github.RepositoryListByUserOptions{
				ListOptions: github.ListOptions{PerPage: 100},
			})
			if err != nil {
				return err
			}
			repos = rs
			return nil
		})
		return repos, err
	})
}

// PullRequestsByAuthor searches for up to 50 pull requests authored by
// username across all repositories.
func (c *Client) PullRequestsByAuthor(ctx context.Context, username string) ([]*github.Issue, error) {
	return cache.GetOrCompute(c.cache, "prs:"+username, func() ([]*github.Issue, error) {
		var issues []*github.Issue
		err := withRetry(ctx, "search.issues", func() error {
			query := fmt.Sprintf("author:%s type:pr", username)
			result, _, err := c.gh.Search.Issues(ctx, query, &github.SearchOptions{
				ListOptions: github.ListOptions{PerPage: 50},
			})
			if err != nil {
				return err
			}
			issues = result.Issues
			return nil
		})
		return issues, err
	})
}

// AllPullRequests lists up to 100 pull requests of all states for a
// repository and resolves each one to its full detail record. The list record
// lacks additions/deletions/changed-file counts, so the details are fetched
// in a second phase, concurrently, preserving list order. One failed detail
// fetch fails the whole batch.
func (c *Client) AllPullRequests(ctx context.Context, owner, repo string) ([]*github.PullRequest, error) {
	key := fmt.Sprintf("allprs:%s/%s", owner, repo)
	return cache.GetOrCompute(c.cache, key, func() ([]*github.PullRequest, error) {
		var list []*github.PullRequest
		err := withRetry(ctx, "pulls.list", func() error {
			prs, _, err := c.gh.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
				State:       "all",
				ListOptions: github.ListOptions{PerPage: 100},
			})
			if err != nil {
				return err
			}
			list = prs
			return nil
		})
		if err != nil {
			return nil, err
		}

		full := make([]*github.PullRequest, len(list))
		g, gctx := errgroup.WithContext(ctx)
		for i, pr := range list {
			g.Go(func() error {
				detail, err := c.PullRequest(gctx, owner, repo, pr.GetNumber())
				if err != nil {
					return err
				}
				full[i] = detail
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return full, nil
	})
}

// PullRequest fetches the full detail record of a single pull request.
func (c *Client) PullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	key := fmt.Sprintf("pr:%s/%s/%d", owner, repo, number)
	return cache.GetOrCompute(c.cache, key, func() (*github.PullRequest, error) {
		var pull *github.PullRequest
		err := withRetry(ctx, "pulls.get", func() error {
			pr, _, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
			if err != nil {
				return err
			}
			pull = pr
			return nil
		})
		return pull, err
	})
}

// PullRequestCode collects the changed files of every commit in a pull
// request, with raw file content inlined. Commits are walked sequentially,
// files within a commit sequentially; the result is flattened in commit
// order, file order within each commit.
func (c *Client) PullRequestCode(ctx context.Context, owner, repo string, number int) ([]FileDiff, error) {
	key := fmt.Sprintf("prcode:%s/%s/%d", owner, repo, number)
	return cache.GetOrCompute(c.cache, key, func() ([]FileDiff, error) {
		var commits []*github.RepositoryCommit
		err := withRetry(ctx, "pulls.listCommits", func() error {
			cs, _, err := c.gh.PullRequests.ListCommits(ctx, owner, repo, number, &github.ListOptions{PerPage: 100})
			if err != nil {
				return err
			}
			commits = cs
			return nil
		})
		if err != nil {
			return nil, err
		}

		var files []FileDiff
		for _, commit := range commits {
			var detail *github.RepositoryCommit
			err := withRetry(ctx, "repos.getCommit", func() error {
				d, _, err := c.gh.Repositories.GetCommit(ctx, owner, repo, commit.GetSHA(), nil)
				if err != nil {
					return err
				}
				detail = d
				return nil
			})
			if err != nil {
				return nil, err
			}

			for _, f := range detail.Files {
				code, err := c.rawContent(ctx, f.GetRawURL())
				if err != nil {
					return nil, err
				}
				files = append(files, FileDiff{
					Filename: f.GetFilename(),
					Status:   f.GetStatus(),
					SHA:      commit.GetSHA(),
					Code:     code,
				})
			}
		}
		return files, nil
	})
}

// rawContent downloads a file blob by its raw URL. Blobs are cached by URL so
// an unchanged file referenced by several commits is downloaded once.
func (c *Client) rawContent(ctx context.Context, rawURL string) (string, error) {
	return cache.GetOrCompute(c.cache, "raw:"+rawURL, func() (string, error) {
		var body string
		err := withRetry(ctx, "raw.get", func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return err
			}
			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return &rawStatusError{URL: rawURL, StatusCode: resp.StatusCode}
			}
			b, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			body = string(b)
			return nil
		})
		return body, err
	})
}

// rawStatusError reports a non-200 response from a raw content URL.
type rawStatusError struct {
	URL        string
	StatusCode int
}

func (e *rawStatusError) Error() string {
	return fmt.Sprintf("fetching %s: unexpected status code %d", e.URL, e.StatusCode)
}
