package platform_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sitereg/internal/config"
	"sitereg/internal/model"
	"sitereg/internal/platform"
	"sitereg/internal/testutil"
)

type fakeProject struct {
	ID          string
	Name        string
	Paused      bool
	ReadyState  string
	CertExpires time.Time
}

func (p *fakeProject) payload() map[string]any {
	out := map[string]any{
		"id":     p.ID,
		"name":   p.Name,
		"paused": p.Paused,
	}
	if p.ReadyState != "" {
		out["latestDeployments"] = []map[string]any{{"readyState": p.ReadyState}}
	}
	if !p.CertExpires.IsZero() {
		out["targets"] = map[string]any{
			"production": map[string]any{
				"alias":       []string{p.Name + ".example.com"},
				"certExpires": p.CertExpires.Format(time.RFC3339),
			},
		}
	}
	return out
}

type fakeDeployHost struct {
	projects map[string]*fakeProject
	teamIDs  []string // teamId query param seen on each request
}

func (h *fakeDeployHost) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.teamIDs = append(h.teamIDs, r.URL.Query().Get("teamId"))

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v9/projects":
			out := make([]map[string]any, 0, len(h.projects))
			for _, p := range h.projects {
				out = append(out, p.payload())
			}
			json.NewEncoder(w).Encode(map[string]any{"projects": out})

		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v9/projects/"):
			id := strings.TrimPrefix(r.URL.Path, "/v9/projects/")
			p, ok := h.projects[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(p.payload())

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/pause"):
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/projects/"), "/pause")
			if p, ok := h.projects[id]; ok {
				p.Paused = true
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNotFound)

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/unpause"):
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/projects/"), "/unpause")
			if p, ok := h.projects[id]; ok {
				p.Paused = false
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNotFound)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newDeployAdapter(t *testing.T, h *fakeDeployHost, clock *testutil.StubClock, teamID string) *platform.DeployAdapter {
	t.Helper()
	srv := httptest.NewServer(h.handler())
	t.Cleanup(srv.Close)

	return platform.NewDeployAdapter(config.PlatformConfig{
		Type:              "deploy",
		Token:             "test-token",
		APIBaseURL:        srv.URL,
		TeamID:            teamID,
		RequestsPerSecond: 1000,
	}, clock)
}

func projectRef(id string) model.ResourceRef {
	return model.ResourceRef{Platform: model.PlatformDeploy, Type: "project", ID: id}
}

func TestDeployAdapter_PauseResume(t *testing.T) {
	ctx := context.Background()
	clock := testutil.FixedClock()

	t.Run("pause suspends a running project", func(t *testing.T) {
		h := &fakeDeployHost{projects: map[string]*fakeProject{
			"prj_acme": {ID: "prj_acme", Name: "acme", ReadyState: "READY"},
		}}
		a := newDeployAdapter(t, h, clock, "")

		res := a.Archive(ctx, projectRef("prj_acme"))
		if !res.Success {
			t.Fatalf("Archive failed: %v", res.Err)
		}
		if !h.projects["prj_acme"].Paused {
			t.Error("project not paused")
		}
	})

	t.Run("pause is idempotent", func(t *testing.T) {
		h := &fakeDeployHost{projects: map[string]*fakeProject{
			"prj_acme": {ID: "prj_acme", Name: "acme", Paused: true},
		}}
		a := newDeployAdapter(t, h, clock, "")

		res := a.Archive(ctx, projectRef("prj_acme"))
		if !res.Success || res.Detail["note"] != "already paused" {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("resume unpauses", func(t *testing.T) {
		h := &fakeDeployHost{projects: map[string]*fakeProject{
			"prj_acme": {ID: "prj_acme", Name: "acme", Paused: true},
		}}
		a := newDeployAdapter(t, h, clock, "")

		res := a.Restore(ctx, projectRef("prj_acme"))
		if !res.Success {
			t.Fatalf("Restore failed: %v", res.Err)
		}
		if h.projects["prj_acme"].Paused {
			t.Error("project still paused")
		}
	})

	t.Run("resume of a running project is idempotent", func(t *testing.T) {
		h := &fakeDeployHost{projects: map[string]*fakeProject{
			"prj_acme": {ID: "prj_acme", Name: "acme"},
		}}
		a := newDeployAdapter(t, h, clock, "")

		res := a.Restore(ctx, projectRef("prj_acme"))
		if !res.Success || res.Detail["note"] != "already running" {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("missing project fails", func(t *testing.T) {
		h := &fakeDeployHost{projects: map[string]*fakeProject{}}
		a := newDeployAdapter(t, h, clock, "")

		if res := a.Archive(ctx, projectRef("prj_ghost")); res.Success {
			t.Error("expected failure")
		}
	})

	t.Run("team id is threaded through every call", func(t *testing.T) {
		h := &fakeDeployHost{projects: map[string]*fakeProject{
			"prj_acme": {ID: "prj_acme", Name: "acme"},
		}}
		a := newDeployAdapter(t, h, clock, "team_1")

		a.Archive(ctx, projectRef("prj_acme"))
		for i, teamID := range h.teamIDs {
			if teamID != "team_1" {
				t.Errorf("request %d missing teamId, got %q", i, teamID)
			}
		}
	})
}

func TestDeployAdapter_Probe(t *testing.T) {
	ctx := context.Background()
	clock := testutil.FixedClock()
	farOut := clock.Now().Add(90 * 24 * time.Hour)

	t.Run("ready deployment is healthy", func(t *testing.T) {
		h := &fakeDeployHost{projects: map[string]*fakeProject{
			"prj_acme": {ID: "prj_acme", Name: "acme", ReadyState: "READY", CertExpires: farOut},
		}}
		a := newDeployAdapter(t, h, clock, "")

		d := a.Probe(ctx, projectRef("prj_acme"))
		if !d.Healthy || d.Degraded {
			t.Errorf("detail = %+v", d)
		}
	})

	t.Run("failed deployment is a hard failure", func(t *testing.T) {
		h := &fakeDeployHost{projects: map[string]*fakeProject{
			"prj_acme": {ID: "prj_acme", Name: "acme", ReadyState: "ERROR"},
		}}
		a := newDeployAdapter(t, h, clock, "")

		d := a.Probe(ctx, projectRef("prj_acme"))
		if d.Healthy || d.Issue != "latest deployment failed" {
			t.Errorf("detail = %+v", d)
		}
	})

	t.Run("in-progress build is degraded", func(t *testing.T) {
		h := &fakeDeployHost{projects: map[string]*fakeProject{
			"prj_acme": {ID: "prj_acme", Name: "acme", ReadyState: "BUILDING", CertExpires: farOut},
		}}
		a := newDeployAdapter(t, h, clock, "")

		d := a.Probe(ctx, projectRef("prj_acme"))
		if !d.Healthy || !d.Degraded || d.Issue != "deployment in progress" {
			t.Errorf("detail = %+v", d)
		}
	})

	t.Run("expiring certificate is degraded", func(t *testing.T) {
		h := &fakeDeployHost{projects: map[string]*fakeProject{
			"prj_acme": {ID: "prj_acme", Name: "acme", ReadyState: "READY",
				CertExpires: clock.Now().Add(5 * 24 * time.Hour)},
		}}
		a := newDeployAdapter(t, h, clock, "")

		d := a.Probe(ctx, projectRef("prj_acme"))
		if !d.Healthy || !d.Degraded || d.Issue != "certificate expiring soon" {
			t.Errorf("detail = %+v", d)
		}
	})

	t.Run("missing project is a hard failure", func(t *testing.T) {
		h := &fakeDeployHost{projects: map[string]*fakeProject{}}
		a := newDeployAdapter(t, h, clock, "")

		d := a.Probe(ctx, projectRef("prj_ghost"))
		if d.Healthy || d.Issue != "project not found" {
			t.Errorf("detail = %+v", d)
		}
	})

	t.Run("public url reachability", func(t *testing.T) {
		site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(site.Close)
		brokenSite := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		t.Cleanup(brokenSite.Close)

		h := &fakeDeployHost{projects: map[string]*fakeProject{
			"prj_acme": {ID: "prj_acme", Name: "acme", ReadyState: "READY", CertExpires: farOut},
		}}
		a := newDeployAdapter(t, h, clock, "")

		ref := projectRef("prj_acme")
		ref.Meta = map[string]string{"url": site.URL}
		if d := a.Probe(ctx, ref); !d.Healthy {
			t.Errorf("reachable url marked unhealthy: %+v", d)
		}

		ref.Meta["url"] = brokenSite.URL
		d := a.Probe(ctx, ref)
		if d.Healthy || !strings.Contains(d.Issue, "status 502") {
			t.Errorf("detail = %+v", d)
		}
	})
}

func TestDeployAdapter_List(t *testing.T) {
	ctx := context.Background()
	clock := testutil.FixedClock()

	h := &fakeDeployHost{projects: map[string]*fakeProject{
		"prj_acme":   {ID: "prj_acme", Name: "acme"},
		"prj_globex": {ID: "prj_globex", Name: "globex"},
	}}
	a := newDeployAdapter(t, h, clock, "")

	refs, err := a.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("got %d refs", len(refs))
	}
	for _, ref := range refs {
		if ref.Platform != model.PlatformDeploy || ref.Type != "project" {
			t.Errorf("unexpected ref %+v", ref)
		}
	}
}
