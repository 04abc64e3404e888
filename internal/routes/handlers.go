package routes

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/just-nibble/pr-tracker/internal/data"
	"github.com/just-nibble/pr-tracker/internal/engine"
	"github.com/just-nibble/pr-tracker/pkg/response"
)

// Handler translates dashboard HTTP requests into engine and store calls.
type Handler struct {
	engine *engine.Engine
	source engine.RemoteSource
	store  data.Store
}

// NewRouter wires the dashboard routes.
func NewRouter(eng *engine.Engine, source engine.RemoteSource, store data.Store) *http.ServeMux {
	h := &Handler{engine: eng, source: source, store: store}

	router := http.NewServeMux()
	router.HandleFunc("GET /{$}", h.Health)
	router.HandleFunc("GET /api/pr/user/{username}", h.UserPullRequests)
	router.HandleFunc("GET /api/pr/repo/{owner}/{repo}", h.RepoPullRequests)
	router.HandleFunc("GET /api/pr/repos/{owner}/{repo}/pulls/{number}", h.PullRequestByNumber)
	router.HandleFunc("GET /api/pr/everything/{owner}/{repo}", h.Everything)
	router.HandleFunc("GET /api/pr/contributions/{owner}/{repo}", h.StoredContributions)
	// Serve Swagger documentation
	router.Handle("/swagger/", httpSwagger.WrapHandler)
	return router
}

type listResponse struct {
	Success bool     `json:"success"`
	Count   int      `json:"count"`
	Title   []string `json:"title"`
	URL     []string `json:"url"`
	PRs     any      `json:"prs"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte("PR tracker online")); err != nil {
		log.Error().Err(err).Msg("failed to write health response")
	}
}

// UserPullRequests returns the raw search results for a user's pull requests.
func (h *Handler) UserPullRequests(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	prs, err := h.source.PullRequestsByAuthor(r.Context(), username)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	titles := make([]string, 0, len(prs))
	urls := make([]string, 0, len(prs))
	for _, pr := range prs {
		titles = append(titles, pr.GetTitle())
		urls = append(urls, pr.GetHTMLURL())
	}
	response.JSON(w, http.StatusOK, listResponse{
		Success: true,
		Count:   len(prs),
		Title:   titles,
		URL:     urls,
		PRs:     prs,
	})
}

// RepoPullRequests returns the full detail records for every pull request of
// a repository.
func (h *Handler) RepoPullRequests(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	repo := r.PathValue("repo")

	prs, err := h.source.AllPullRequests(r.Context(), owner, repo)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	titles := make([]string, 0, len(prs))
	urls := make([]string, 0, len(prs))
	for _, pr := range prs {
		titles = append(titles, pr.GetTitle())
		urls = append(urls, pr.GetHTMLURL())
	}
	response.JSON(w, http.StatusOK, listResponse{
		Success: true,
		Count:   len(prs),
		Title:   titles,
		URL:     urls,
		PRs:     prs,
	})
}

// PullRequestByNumber returns one pull request's full detail record.
func (h *Handler) PullRequestByNumber(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	repo := r.PathValue("repo")

	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	pr, err := h.source.PullRequest(r.Context(), owner, repo, number)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{"success": true, "pr": pr})
}

// Everything ingests a repository: every pull request is scored, resolved and
// persisted where possible, and the assembled contribution rows are returned.
func (h *Handler) Everything(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	repo := r.PathValue("repo")

	rows, err := h.engine.BuildAll(r.Context(), owner, repo)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{"success": true, "row": rows})
}

// StoredContributions returns previously persisted contributions for a
// repository without touching GitHub.
func (h *Handler) StoredContributions(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	repo := r.PathValue("repo")

	rows, err := h.store.ContributionsByRepo(r.Context(), owner, repo)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(rows),
		"row":     rows,
	})
}
