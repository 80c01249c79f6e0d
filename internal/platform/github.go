package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sitereg/internal/config"
	"sitereg/internal/lifecycle"
	"sitereg/internal/model"
)

const (
	githubDefaultBaseURL = "https://api.github.com"

	// archivedSuffix is deterministic so a retried archive finds the
	// already-renamed repository instead of failing.
	archivedSuffix = "-deleted"

	// repos with no push in this window count as a soft health issue
	stalePushWindow = 90 * 24 * time.Hour
)

// GitHubAdapter manages source-control repositories. Archive renames
// the repository to a deterministic tombstone name, makes it private
// and flags it archived; restore reverses all three, reinstating the
// visibility recorded at archive time.
type GitHubAdapter struct {
	client *apiClient
	org    string
	clock  lifecycle.Clock
}

var _ lifecycle.Adapter = (*GitHubAdapter)(nil)

func NewGitHubAdapter(cfg config.PlatformConfig, clock lifecycle.Clock) *GitHubAdapter {
	base := cfg.APIBaseURL
	if base == "" {
		base = githubDefaultBaseURL
	}
	return &GitHubAdapter{
		client: newAPIClient(base, NewCredentialSource(cfg), "Bearer", cfg.RequestsPerSecond),
		org:    cfg.Org,
		clock:  clock,
	}
}

func (a *GitHubAdapter) Platform() model.Platform { return model.PlatformGitHub }

type githubRepo struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	FullName string    `json:"full_name"`
	Private  bool      `json:"private"`
	Archived bool      `json:"archived"`
	HTMLURL  string    `json:"html_url"`
	PushedAt time.Time `json:"pushed_at"`
}

// Archive renames the repository to "<name>-deleted", makes it private
// and sets the archived flag. The pre-delete visibility goes into the
// result detail so a later restore can reinstate it. An already-
// archived repository returns success.
func (a *GitHubAdapter) Archive(ctx context.Context, ref model.ResourceRef) lifecycle.Result {
	owner, name, err := splitFullName(ref.ID)
	if err != nil {
		return lifecycle.Failed(err, nil)
	}

	repo, err := a.getRepo(ctx, owner, name)
	if err != nil {
		return lifecycle.Failed(err, nil)
	}
	if repo == nil {
		// Original name gone: check for the tombstone.
		tombstone, err := a.getRepo(ctx, owner, name+archivedSuffix)
		if err != nil {
			return lifecycle.Failed(err, nil)
		}
		if tombstone != nil {
			return lifecycle.OK(map[string]any{"note": "already archived", "repo": tombstone.FullName})
		}
		return lifecycle.Failed(fmt.Errorf("repository %s not found", ref.ID), nil)
	}

	visibility := "public"
	if repo.Private {
		visibility = "private"
	}

	var updated githubRepo
	err = a.client.doJSON(ctx, http.MethodPatch, "/repos/"+owner+"/"+name, nil,
		map[string]any{"name": name + archivedSuffix, "private": true, "archived": true}, &updated)
	if err != nil {
		return lifecycle.Failed(err, nil)
	}

	return lifecycle.OK(map[string]any{"repo": updated.FullName, "visibility": visibility})
}

// Restore renames the tombstone back, unsets the archived flag and
// reinstates the visibility recorded at archive time (public when the
// ref metadata carries none). A repository already under its original
// name returns success.
func (a *GitHubAdapter) Restore(ctx context.Context, ref model.ResourceRef) lifecycle.Result {
	owner, name, err := splitFullName(ref.ID)
	if err != nil {
		return lifecycle.Failed(err, nil)
	}

	repo, err := a.getRepo(ctx, owner, name)
	if err != nil {
		return lifecycle.Failed(err, nil)
	}
	if repo != nil {
		return lifecycle.OK(map[string]any{"note": "already restored", "repo": repo.FullName})
	}

	tombstone, err := a.getRepo(ctx, owner, name+archivedSuffix)
	if err != nil {
		return lifecycle.Failed(err, nil)
	}
	if tombstone == nil {
		return lifecycle.Failed(fmt.Errorf("neither %s nor its archived copy exists", ref.ID), nil)
	}

	private := ref.Meta["visibility"] == "private"
	var updated githubRepo
	err = a.client.doJSON(ctx, http.MethodPatch, "/repos/"+owner+"/"+tombstone.Name, nil,
		map[string]any{"name": name, "private": private, "archived": false}, &updated)
	if err != nil {
		return lifecycle.Failed(err, nil)
	}

	return lifecycle.OK(map[string]any{"repo": updated.FullName})
}

// Probe checks the repository is reachable and has recent activity.
func (a *GitHubAdapter) Probe(ctx context.Context, ref model.ResourceRef) model.HealthDetail {
	owner, name, err := splitFullName(ref.ID)
	if err != nil {
		return model.HealthDetail{Healthy: false, Issue: err.Error()}
	}

	repo, err := a.getRepo(ctx, owner, name)
	if err != nil {
		return model.HealthDetail{Healthy: false, Issue: err.Error()}
	}
	if repo == nil {
		return model.HealthDetail{Healthy: false, Issue: "repository not found"}
	}

	detail := map[string]any{
		"repo":      repo.FullName,
		"pushed_at": repo.PushedAt.UTC().Format(time.RFC3339),
	}
	if a.clock.Now().Sub(repo.PushedAt) > stalePushWindow {
		return model.HealthDetail{Healthy: true, Degraded: true,
			Issue: "no recent activity", Detail: detail}
	}
	return model.HealthDetail{Healthy: true, Detail: detail}
}

// List returns every repository in the configured organization.
func (a *GitHubAdapter) List(ctx context.Context) ([]model.ResourceRef, error) {
	var refs []model.ResourceRef
	for page := 1; ; page++ {
		var repos []githubRepo
		query := url.Values{"per_page": {"100"}, "page": {strconv.Itoa(page)}}
		if err := a.client.doJSON(ctx, http.MethodGet, "/orgs/"+a.org+"/repos", query, nil, &repos); err != nil {
			return nil, fmt.Errorf("listing repositories: %w", err)
		}
		for _, r := range repos {
			refs = append(refs, model.ResourceRef{
				Platform: model.PlatformGitHub,
				Type:     "repository",
				ID:       r.FullName,
				Name:     strings.TrimSuffix(r.Name, archivedSuffix),
				Meta:     map[string]string{"archived": strconv.FormatBool(r.Archived)},
			})
		}
		if len(repos) < 100 {
			break
		}
	}
	return refs, nil
}

func (a *GitHubAdapter) getRepo(ctx context.Context, owner, name string) (*githubRepo, error) {
	var repo githubRepo
	err := a.client.doJSON(ctx, http.MethodGet, "/repos/"+owner+"/"+name, nil, nil, &repo)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &repo, nil
}

func splitFullName(fullName string) (owner, name string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository full name: %q", fullName)
	}
	return parts[0], parts[1], nil
}
