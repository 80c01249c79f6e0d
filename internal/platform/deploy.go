package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"sitereg/internal/config"
	"sitereg/internal/lifecycle"
	"sitereg/internal/model"
)

// certExpiryWarning flags certificates expiring within this window as a
// soft issue.
const certExpiryWarning = 14 * 24 * time.Hour

// DeployAdapter manages projects on the deployment host. Its native
// verbs are Pause and Resume; Archive/Restore delegate to them.
type DeployAdapter struct {
	client *apiClient
	teamID string
	clock  lifecycle.Clock
	// public URL probing uses its own client: no auth, no JSON
	urlClient *http.Client
}

var _ lifecycle.Adapter = (*DeployAdapter)(nil)

func NewDeployAdapter(cfg config.PlatformConfig, clock lifecycle.Clock) *DeployAdapter {
	return &DeployAdapter{
		client:    newAPIClient(cfg.APIBaseURL, NewCredentialSource(cfg), "Bearer", cfg.RequestsPerSecond),
		teamID:    cfg.TeamID,
		clock:     clock,
		urlClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *DeployAdapter) Platform() model.Platform { return model.PlatformDeploy }

func (a *DeployAdapter) Archive(ctx context.Context, ref model.ResourceRef) lifecycle.Result {
	return a.Pause(ctx, ref)
}

func (a *DeployAdapter) Restore(ctx context.Context, ref model.ResourceRef) lifecycle.Result {
	return a.Resume(ctx, ref)
}

type deployProject struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Paused bool   `json:"paused"`

	LatestDeployments []struct {
		ReadyState string `json:"readyState"` // READY, ERROR, BUILDING, QUEUED
	} `json:"latestDeployments"`

	Targets struct {
		Production struct {
			Alias       []string  `json:"alias"`
			CertExpires time.Time `json:"certExpires"`
		} `json:"production"`
	} `json:"targets"`
}

// Pause suspends all deployments for the project. Pausing an
// already-paused project returns success.
func (a *DeployAdapter) Pause(ctx context.Context, ref model.ResourceRef) lifecycle.Result {
	project, err := a.getProject(ctx, ref.ID)
	if err != nil {
		return lifecycle.Failed(err, nil)
	}
	if project == nil {
		return lifecycle.Failed(fmt.Errorf("project %s not found", ref.ID), nil)
	}
	if project.Paused {
		return lifecycle.OK(map[string]any{"note": "already paused", "project": project.ID})
	}

	err = a.client.doJSON(ctx, http.MethodPost, "/v1/projects/"+ref.ID+"/pause", a.teamQuery(), nil, nil)
	if err != nil {
		return lifecycle.Failed(err, nil)
	}
	return lifecycle.OK(map[string]any{"project": project.ID, "paused": true})
}

// Resume unpauses the project. Resuming a running project returns success.
func (a *DeployAdapter) Resume(ctx context.Context, ref model.ResourceRef) lifecycle.Result {
	project, err := a.getProject(ctx, ref.ID)
	if err != nil {
		return lifecycle.Failed(err, nil)
	}
	if project == nil {
		return lifecycle.Failed(fmt.Errorf("project %s not found", ref.ID), nil)
	}
	if !project.Paused {
		return lifecycle.OK(map[string]any{"note": "already running", "project": project.ID})
	}

	err = a.client.doJSON(ctx, http.MethodPost, "/v1/projects/"+ref.ID+"/unpause", a.teamQuery(), nil, nil)
	if err != nil {
		return lifecycle.Failed(err, nil)
	}
	return lifecycle.OK(map[string]any{"project": project.ID, "paused": false})
}

// Probe checks the project's latest deployment state, certificate
// validity and — when the ref carries one — public URL reachability.
func (a *DeployAdapter) Probe(ctx context.Context, ref model.ResourceRef) model.HealthDetail {
	project, err := a.getProject(ctx, ref.ID)
	if err != nil {
		return model.HealthDetail{Healthy: false, Issue: err.Error()}
	}
	if project == nil {
		return model.HealthDetail{Healthy: false, Issue: "project not found"}
	}

	detail := map[string]any{"project": project.ID, "paused": project.Paused}

	state := ""
	if len(project.LatestDeployments) > 0 {
		state = project.LatestDeployments[0].ReadyState
		detail["deployment_state"] = state
	}
	if state == "ERROR" {
		return model.HealthDetail{Healthy: false, Issue: "latest deployment failed", Detail: detail}
	}

	if publicURL := ref.Meta["url"]; publicURL != "" {
		if issue := a.probeURL(ctx, publicURL); issue != "" {
			return model.HealthDetail{Healthy: false, Issue: issue, Detail: detail}
		}
		detail["url"] = publicURL
	}

	var degraded bool
	var issue string
	if state == "BUILDING" || state == "QUEUED" {
		degraded, issue = true, "deployment in progress"
	}
	if expires := project.Targets.Production.CertExpires; !expires.IsZero() &&
		expires.Sub(a.clock.Now()) < certExpiryWarning {
		degraded, issue = true, "certificate expiring soon"
		detail["cert_expires"] = expires.UTC().Format(time.RFC3339)
	}

	return model.HealthDetail{Healthy: true, Degraded: degraded, Issue: issue, Detail: detail}
}

// List returns every project visible to the configured team.
func (a *DeployAdapter) List(ctx context.Context) ([]model.ResourceRef, error) {
	var resp struct {
		Projects []deployProject `json:"projects"`
	}
	if err := a.client.doJSON(ctx, http.MethodGet, "/v9/projects", a.teamQuery(), nil, &resp); err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	refs := make([]model.ResourceRef, 0, len(resp.Projects))
	for _, p := range resp.Projects {
		refs = append(refs, model.ResourceRef{
			Platform: model.PlatformDeploy,
			Type:     "project",
			ID:       p.ID,
			Name:     p.Name,
		})
	}
	return refs, nil
}

func (a *DeployAdapter) getProject(ctx context.Context, id string) (*deployProject, error) {
	var project deployProject
	err := a.client.doJSON(ctx, http.MethodGet, "/v9/projects/"+id, a.teamQuery(), nil, &project)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

// probeURL returns a non-empty issue when the public URL is unreachable.
func (a *DeployAdapter) probeURL(ctx context.Context, publicURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, publicURL, nil)
	if err != nil {
		return fmt.Sprintf("invalid public url: %v", err)
	}
	resp, err := a.urlClient.Do(req)
	if err != nil {
		return fmt.Sprintf("public url unreachable: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Sprintf("public url returned status %d", resp.StatusCode)
	}
	return ""
}

func (a *DeployAdapter) teamQuery() url.Values {
	if a.teamID == "" {
		return nil
	}
	return url.Values{"teamId": {a.teamID}}
}
