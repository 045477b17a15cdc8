package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lytDeveloper/Lyt-sub003/pkg/explore"
	"github.com/lytDeveloper/Lyt-sub003/pkg/preference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

// feedSource sert n projets, un par minute en remontant le temps.
type feedSource struct{ items []explore.FeedItem }

func newFeedSource(n int) *feedSource {
	s := &feedSource{}
	for i := range n {
		s.items = append(s.items, explore.FeedItem{
			Type:      explore.TypeProject,
			ID:        fmt.Sprintf("project-%03d", i),
			OwnerID:   fmt.Sprintf("owner-%d", i),
			Title:     fmt.Sprintf("Project %d", i),
			Status:    explore.StatusOpen,
			CreatedAt: created.Add(-time.Duration(i) * time.Minute),
		})
	}
	return s
}

func (s *feedSource) List(_ context.Context, t explore.EntityType, _ explore.Filter, after explore.Cursor, limit int) ([]explore.FeedItem, error) {
	var out []explore.FeedItem
	for _, it := range s.items {
		if it.Type == t && after.Before(it.Key()) && len(out) < limit {
			out = append(out, it)
		}
	}
	return out, nil
}

func newFeedServer(t *testing.T, src explore.Source) *httptest.Server {
	t.Helper()
	fetcher := explore.NewBatchFetcher(src)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := explore.DecodeRequest(r.URL.Query())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		page, err := fetcher.Fetch(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(explore.NewPageResponse(page))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// prefServer est un interaction-service en mémoire pour un seul utilisateur.
type prefServer struct {
	mu     sync.Mutex
	sets   map[preference.Pair][]string
	token  string
	writes  []string
	reasons map[string]string
}

func newPrefServer(t *testing.T, token string) (*prefServer, *httptest.Server) {
	t.Helper()
	p := &prefServer{sets: map[preference.Pair][]string{}, token: token, reasons: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/preferences", func(w http.ResponseWriter, r *http.Request) {
		if !p.authorized(w, r) {
			return
		}
		pair := pairFromQuery(r)
		p.mu.Lock()
		ids := append([]string{}, p.sets[pair]...)
		p.mu.Unlock()
		_ = json.NewEncoder(w).Encode(preference.ListResponse{TargetIDs: ids})
	})
	mux.HandleFunc("POST /v1/preferences", func(w http.ResponseWriter, r *http.Request) {
		if !p.authorized(w, r) {
			return
		}
		var body preference.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		pair := preference.Pair{Kind: body.Kind, TargetType: body.TargetType}
		p.mu.Lock()
		p.writes = append(p.writes, "+"+pair.String()+":"+body.TargetID)
		p.reasons[body.TargetID] = body.Reason
		if !slices.Contains(p.sets[pair], body.TargetID) {
			p.sets[pair] = append(p.sets[pair], body.TargetID)
		}
		p.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(preference.CreateResponse{Result: "created"})
	})
	mux.HandleFunc("DELETE /v1/preferences", func(w http.ResponseWriter, r *http.Request) {
		if !p.authorized(w, r) {
			return
		}
		pair := pairFromQuery(r)
		id := r.URL.Query().Get("target_id")
		p.mu.Lock()
		p.writes = append(p.writes, "-"+pair.String()+":"+id)
		p.sets[pair] = slices.DeleteFunc(p.sets[pair], func(s string) bool { return s == id })
		p.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return p, srv
}

func (p *prefServer) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+p.token {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(preference.ErrorResponse{Error: "unauthorized"})
		return false
	}
	return true
}

func (p *prefServer) seed(pair preference.Pair, ids ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sets[pair] = append(p.sets[pair], ids...)
}

func (p *prefServer) members(pair preference.Pair) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.sets[pair]...)
}

func pairFromQuery(r *http.Request) preference.Pair {
	q := r.URL.Query()
	return preference.Pair{Kind: preference.Kind(q.Get("kind")), TargetType: preference.TargetType(q.Get("target_type"))}
}

func signedToken(t *testing.T, subject string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

type env struct {
	dir   string
	prefs *prefServer
	token string
}

func setup(t *testing.T, projects int) env {
	t.Helper()
	dir := t.TempDir()
	token := signedToken(t, "u1")
	prefs, prefSrv := newPrefServer(t, token)
	feedSrv := newFeedServer(t, newFeedSource(projects))

	t.Setenv("LYT_FEED_URL", feedSrv.URL)
	t.Setenv("LYT_INTERACTION_URL", prefSrv.URL)
	t.Setenv("LYT_DATA_DIR", dir)
	return env{dir: dir, prefs: prefs, token: token}
}

func run(t *testing.T, e env, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(e.dir, "config.yaml")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandsRequireSession(t *testing.T) {
	e := setup(t, 1)
	_, err := run(t, e, "explore")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = run(t, e, "like", "project", "project-000")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLoginLogout(t *testing.T) {
	e := setup(t, 1)

	_, err := run(t, e, "login")
	require.Error(t, err)

	out, err := run(t, e, "login", "--token", e.token)
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as u1")

	sess, err := LoadSession(filepath.Join(e.dir, "session.json"))
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)

	out, err = run(t, e, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "logged out")
	_, err = LoadSession(filepath.Join(e.dir, "session.json"))
	assert.ErrorIs(t, err, ErrNoSession)

	// une seconde déconnexion ne doit pas échouer
	_, err = run(t, e, "logout")
	assert.NoError(t, err)
}

func TestExploreHidesHiddenAndBlocked(t *testing.T) {
	e := setup(t, 6)
	e.prefs.seed(preference.Pair{Kind: preference.KindHide, TargetType: preference.TargetProject}, "project-001")
	e.prefs.seed(preference.Pair{Kind: preference.KindBlock, TargetType: preference.TargetUser}, "owner-2")
	_, err := run(t, e, "login", "--token", e.token)
	require.NoError(t, err)

	out, err := run(t, e, "explore")
	require.NoError(t, err)
	assert.Contains(t, out, "project-000")
	assert.NotContains(t, out, "project-001", "hidden")
	assert.NotContains(t, out, "project-002", "owner blocked")
	assert.NotContains(t, out, "project-003", "first page holds three items")
	assert.Contains(t, out, "more available")

	out, err = run(t, e, "explore", "--pages", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "project-005")
	assert.NotContains(t, out, "more available")
}

func TestExploreRejectsUnknownType(t *testing.T) {
	e := setup(t, 1)
	_, err := run(t, e, "login", "--token", e.token)
	require.NoError(t, err)

	_, err = run(t, e, "explore", "--type", "planet")
	assert.ErrorContains(t, err, "unknown type")
}

func TestToggleCommands(t *testing.T) {
	e := setup(t, 1)
	_, err := run(t, e, "login", "--token", e.token)
	require.NoError(t, err)

	out, err := run(t, e, "like", "project", "project-000")
	require.NoError(t, err)
	assert.Equal(t, "project project-000: liked\n", out)
	likes := preference.Pair{Kind: preference.KindLike, TargetType: preference.TargetProject}
	assert.Equal(t, []string{"project-000"}, e.prefs.members(likes), "remote write flushed before exit")

	out, err = run(t, e, "like", "project", "project-000")
	require.NoError(t, err)
	assert.Equal(t, "project project-000: unliked\n", out)
	assert.Empty(t, e.prefs.members(likes))

	out, err = run(t, e, "follow", "u2")
	require.NoError(t, err)
	assert.Equal(t, "user u2: following\n", out)

	_, err = run(t, e, "follow", "u1")
	assert.ErrorIs(t, err, preference.ErrSelfTarget)

	_, err = run(t, e, "hide", "user", "u2")
	assert.ErrorIs(t, err, preference.ErrInvalidTarget)

	out, err = run(t, e, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "user: u1")
	assert.Regexp(t, `follow/user\s+1`, out)
	assert.Regexp(t, `like/project\s+0`, out)
}

func TestBlockWithReason(t *testing.T) {
	e := setup(t, 1)
	_, err := run(t, e, "login", "--token", e.token)
	require.NoError(t, err)

	out, err := run(t, e, "block", "u9", "--reason", " harassment ")
	require.NoError(t, err)
	assert.Equal(t, "user u9: blocked\n", out)

	e.prefs.mu.Lock()
	defer e.prefs.mu.Unlock()
	assert.Equal(t, "harassment", e.prefs.reasons["u9"])
}

func TestStatusWorksOffline(t *testing.T) {
	e := setup(t, 1)
	_, err := run(t, e, "login", "--token", e.token)
	require.NoError(t, err)
	_, err = run(t, e, "block", "u9")
	require.NoError(t, err)

	t.Setenv("LYT_INTERACTION_URL", "http://127.0.0.1:1")
	out, err := run(t, e, "status")
	require.NoError(t, err)
	assert.Regexp(t, `block/user\s+1`, out)
}

func TestSyncReplacesLocalState(t *testing.T) {
	e := setup(t, 1)
	_, err := run(t, e, "login", "--token", e.token)
	require.NoError(t, err)

	// un autre appareil ajoute un like
	e.prefs.seed(preference.Pair{Kind: preference.KindLike, TargetType: preference.TargetPartner}, "partner-1")

	out, err := run(t, e, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "preferences synced")

	out, err = run(t, e, "status")
	require.NoError(t, err)
	assert.Regexp(t, `like/partner\s+1`, out)
}
