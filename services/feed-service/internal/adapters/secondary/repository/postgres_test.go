package repository

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lytDeveloper/Lyt-sub003/pkg/explore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildListQuery_FirstPage(t *testing.T) {
	q, args, err := buildListQuery(explore.TypeProject, explore.Filter{}, explore.Cursor{}, 4)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, owner_id, title, category, status, created_at FROM projects ORDER BY created_at DESC, id DESC LIMIT @limit", q)
	assert.Equal(t, pgx.NamedArgs{"limit": 4}, args)
}

func TestBuildListQuery_Filtered(t *testing.T) {
	after := explore.Cursor{CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), ID: "c-9"}
	f := explore.Filter{Category: "music", Statuses: explore.StatusSet{explore.StatusOpen}, SearchQuery: " 50%_off "}

	q, args, err := buildListQuery(explore.TypeCollaboration, f, after, 11)
	require.NoError(t, err)
	assert.Contains(t, q, "FROM collaborations WHERE category = @category AND status = ANY(@statuses) AND title ILIKE @search")
	assert.Contains(t, q, "(created_at, id) < (@after_ts, @after_id)")
	assert.Equal(t, []string{"open"}, args["statuses"])
	assert.Equal(t, `%50\%\_off%`, args["search"])
	assert.Equal(t, "c-9", args["after_id"])
	assert.Equal(t, 11, args["limit"])
}

func TestBuildListQuery_PartnerIgnoresStatus(t *testing.T) {
	q, args, err := buildListQuery(explore.TypePartner, explore.Filter{Statuses: explore.StatusSet{explore.StatusOpen}}, explore.Cursor{}, 3)
	require.NoError(t, err)
	assert.Contains(t, q, "SELECT id, user_id, display_name, category, 'active'::text, created_at FROM partners")
	assert.NotContains(t, q, "ANY")
	assert.NotContains(t, args, "statuses")
}

func TestBuildListQuery_UnknownType(t *testing.T) {
	_, _, err := buildListQuery("event", explore.Filter{}, explore.Cursor{}, 3)
	assert.Error(t, err)
}
