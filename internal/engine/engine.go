// Package engine builds scored contribution records from pull requests and
// persists them with read-before-write deduplication.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/go-github/v71/github"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/just-nibble/pr-tracker/internal/cache"
	"github.com/just-nibble/pr-tracker/internal/data"
	"github.com/just-nibble/pr-tracker/internal/gh"
	"github.com/just-nibble/pr-tracker/internal/scoring"
	"github.com/just-nibble/pr-tracker/pkg/errcodes"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RemoteSource is the set of GitHub capabilities the engine consumes.
type RemoteSource interface {
	User(ctx context.Context, username string) (*github.User, error)
	Repos(ctx context.Context, username string) ([]*github.Repository, error)
	PullRequestsByAuthor(ctx context.Context, username string) ([]*github.Issue, error)
	AllPullRequests(ctx context.Context, owner, repo string) ([]*github.PullRequest, error)
	PullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
	PullRequestCode(ctx context.Context, owner, repo string, number int) ([]gh.FileDiff, error)
}

// Engine orchestrates contribution building. The cache it owns is scoped to
// the engine instance, so tests stay hermetic.
type Engine struct {
	store  data.Store
	source RemoteSource
	cache  *cache.Cache
	config *scoring.EventConfig

	now   func() time.Time
	newID func() string
}

// New creates an Engine. A nil config falls back to the default event rubric
// so scoring never silently degenerates to zero.
func New(store data.Store, source RemoteSource, cfg *scoring.EventConfig) *Engine {
	if cfg == nil {
		cfg = scoring.DefaultEventConfig()
	}
	return &Engine{
		store:  store,
		source: source,
		cache:  cache.New(),
		config: cfg,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// BuildContribution classifies and scores one pull request, resolves its
// author to a member, fetches the per-commit file diffs and assembles the
// contribution record. Records of resolved members are persisted through the
// deduplicating insert; non-member records are returned but never stored.
func (e *Engine) BuildContribution(ctx context.Context, pr *github.PullRequest, owner, repo string) (*data.Contribution, error) {
	status := scoring.ClassifyStatus(pr)
	score := scoring.CalculatePRScore(pr, e.config, status)
	memberID := e.memberID(ctx, pr.GetUser().GetLogin())

	code, err := e.source.PullRequestCode(ctx, owner, repo, pr.GetNumber())
	if err != nil {
		return nil, fmt.Errorf("fetching code for PR #%d: %w", pr.GetNumber(), err)
	}

	labels := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		labels = append(labels, l.GetName())
	}
	reviewers := make([]string, 0, len(pr.RequestedReviewers))
	for _, r := range pr.RequestedReviewers {
		reviewers = append(reviewers, r.GetLogin())
	}

	contribution := &data.Contribution{
		ID:                   e.newID(),
		MemberID:             memberID,
		GithubPRID:           pr.GetID(),
		RepoOwner:            owner,
		RepoName:             repo,
		PRNumber:             pr.GetNumber(),
		PRTitle:              pr.GetTitle(),
		PRLink:               pr.GetHTMLURL(),
		Status:               string(status),
		AuthorGithubUsername: pr.GetUser().GetLogin(),
		PRCreatedAt:          timestampValue(pr.CreatedAt),
		PRUpdatedAt:          timestampValue(pr.UpdatedAt),
		ClosedAt:             timestampValue(pr.ClosedAt),
		MergedAt:             timestampValue(pr.MergedAt),
		Labels:               labels,
		Reviewers:            reviewers,
		ReviewsCount:         0,
		CommentsCount:        pr.GetComments(),
		Additions:            pr.GetAdditions(),
		Deletions:            pr.GetDeletions(),
		ChangedFiles:         pr.GetChangedFiles(),
		Score:                score,
		Metadata:             prDocument(pr),
		UserCode:             code,
		LastSynced:           e.now().UTC(),
	}

	if memberID != nil {
		if stored := e.insertContribution(ctx, contribution); stored != nil {
			return stored, nil
		}
	}
	return contribution, nil
}

// BuildAll fans BuildContribution out across every pull request of a
// repository. One pull request's failure never aborts the batch: it is
// logged and that PR is omitted from the result.
func (e *Engine) BuildAll(ctx context.Context, owner, repo string) ([]*data.Contribution, error) {
	prs, err := e.source.AllPullRequests(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	rows := make([]*data.Contribution, len(prs))
	var wg sync.WaitGroup
	for i, pr := range prs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			contribution, err := e.BuildContribution(ctx, pr, owner, repo)
			if err != nil {
				log.Error().
					Err(err).
					Int("pr_number", pr.GetNumber()).
					Str("repo", owner+"/"+repo).
					Msg("failed to build contribution")
				return
			}
			rows[i] = contribution
		}()
	}
	wg.Wait()

	contributions := make([]*data.Contribution, 0, len(rows))
	for _, c := range rows {
		if c != nil {
			contributions = append(contributions, c)
		}
	}
	return contributions, nil
}

// memberID resolves a GitHub username to an internal member id. Lookup
// failures are logged and treated as "no member"; successful hits are
// memoized.
func (e *Engine) memberID(ctx context.Context, username string) *uint {
	key := "member:" + username
	if v, ok := e.cache.Value(key); ok {
		if id, ok := v.(uint); ok {
			return &id
		}
	}

	id, err := e.store.MemberIDByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, errcodes.ErrNoRecordFound) {
			log.Error().Err(err).Str("username", username).Msg("member lookup failed")
		}
		return nil
	}
	e.cache.Set(key, id)
	return &id
}

// insertContribution persists a contribution unless a row with the same
// natural key already exists: cache first, then the store. Lookup errors
// other than not-found are logged and do not block the insert attempt. A
// failed insert is logged and yields nil, meaning "not persisted".
func (e *Engine) insertContribution(ctx context.Context, c *data.Contribution) *data.Contribution {
	key := fmt.Sprintf("contrib:%d:%s/%s", c.GithubPRID, c.RepoOwner, c.RepoName)
	if v, ok := e.cache.Value(key); ok {
		if cached, ok := v.(*data.Contribution); ok {
			return cached
		}
	}

	existing, err := e.store.ContributionByNaturalKey(ctx, c.GithubPRID, c.RepoOwner, c.RepoName)
	if err == nil {
		e.cache.Set(key, existing)
		return existing
	}
	if !errors.Is(err, errcodes.ErrNoRecordFound) {
		log.Error().
			Err(err).
			Int64("github_pr_id", c.GithubPRID).
			Msg("contribution lookup failed")
	}

	if err := e.store.CreateContribution(ctx, c); err != nil {
		log.Error().
			Err(err).
			Int64("github_pr_id", c.GithubPRID).
			Msg("contribution insert failed")
		return nil
	}
	e.cache.Set(key, c)
	return c
}

// prDocument round-trips the pull request payload into a semi-structured
// document, preserving the full upstream record as opaque metadata.
func prDocument(pr *github.PullRequest) map[string]any {
	raw, err := json.Marshal(pr)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode PR metadata")
		return nil
	}
	doc := make(map[string]any)
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Error().Err(err).Msg("failed to decode PR metadata")
		return nil
	}
	return doc
}

func timestampValue(ts *github.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}
