package prefclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/lytDeveloper/Lyt-sub003/pkg/preference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService imite l'interaction-service pour un seul utilisateur.
type fakeService struct {
	mu      sync.Mutex
	members map[string]bool // "kind/type/target"
	auths   []string
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auths = append(f.auths, r.Header.Get("Authorization"))
	if r.Header.Get("Authorization") != "Bearer tok" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	q := r.URL.Query()
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/preferences":
		var req preference.CreateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.TargetID == "me" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(preference.ErrorResponse{Error: "cannot target yourself"})
			return
		}
		key := string(req.Kind) + "/" + string(req.TargetType) + "/" + req.TargetID
		res := preference.Created
		if f.members[key] {
			res = preference.AlreadyExists
		}
		f.members[key] = true
		_ = json.NewEncoder(w).Encode(preference.CreateResponse{Result: res.String()})
	case r.Method == http.MethodDelete:
		delete(f.members, q.Get("kind")+"/"+q.Get("target_type")+"/"+q.Get("target_id"))
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet:
		ids := []string{}
		prefix := q.Get("kind") + "/" + q.Get("target_type") + "/"
		for k := range f.members {
			if len(k) > len(prefix) && k[:len(prefix)] == prefix {
				ids = append(ids, k[len(prefix):])
			}
		}
		_ = json.NewEncoder(w).Encode(preference.ListResponse{TargetIDs: ids})
	default:
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(preference.ErrorResponse{Error: "boom"})
	}
}

func newTestClient(t *testing.T, token string) (*Client, *fakeService) {
	t.Helper()
	svc := &fakeService{members: map[string]bool{}}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)
	return New(srv.URL, func() string { return token }, WithHTTPClient(srv.Client())), svc
}

func TestCreateDeleteList(t *testing.T) {
	c, svc := newTestClient(t, "tok")
	ctx := context.Background()
	rec := preference.Record{UserID: "u1", TargetID: "p1", TargetType: preference.TargetPartner, Kind: preference.KindLike}

	res, err := c.Create(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, preference.Created, res)
	res, err = c.Create(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, preference.AlreadyExists, res)

	ids, err := c.ListMembers(ctx, "u1", preference.TargetPartner, preference.KindLike)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids)

	require.NoError(t, c.Delete(ctx, "u1", "p1", preference.TargetPartner, preference.KindLike))
	ids, err = c.ListMembers(ctx, "u1", preference.TargetPartner, preference.KindLike)
	require.NoError(t, err)
	assert.Empty(t, ids)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, "Bearer tok", svc.auths[0])
}

func TestErrorMapping(t *testing.T) {
	c, _ := newTestClient(t, "tok")
	ctx := context.Background()

	_, err := c.Create(ctx, preference.Record{TargetID: "me", TargetType: preference.TargetUser, Kind: preference.KindFollow})
	assert.ErrorIs(t, err, preference.ErrSelfTarget)

	_, err = c.Check(ctx, preference.TargetUser, preference.KindBlock, []string{"u2"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "boom", se.Message)

	anon, _ := newTestClient(t, "")
	_, err = anon.ListMembers(ctx, "u1", preference.TargetUser, preference.KindFollow)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestStoreOverHTTP(t *testing.T) {
	c, svc := newTestClient(t, "tok")
	ctx := context.Background()
	store := preference.NewStore(c)
	require.NoError(t, store.Initialize(ctx, "u1"))

	liked, err := store.Toggle(ctx, preference.KindLike, preference.TargetProject, "p9", nil)
	require.NoError(t, err)
	assert.True(t, liked)
	require.NoError(t, store.Flush(ctx))

	svc.mu.Lock()
	assert.True(t, svc.members["like/project/p9"])
	svc.mu.Unlock()
}
