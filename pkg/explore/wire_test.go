package explore

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestQueryRoundTrip(t *testing.T) {
	proj := Cursor{CreatedAt: baseTime, ID: "project-007"}
	req := Request{
		Filter:     Filter{Category: "music", Statuses: DefaultStatuses, SearchQuery: "jazz"},
		Cursors:    &Cursors{Projects: &proj, Partners: &Cursor{}},
		Limit:      NextPageLimit,
		ActiveType: TypeProject,
	}

	v := EncodeRequest(req)
	assert.Equal(t, "1", v.Get(ParamContinue))
	assert.Empty(t, v.Get("collaborations_cursor"))
	assert.Equal(t, "start", v.Get("partners_cursor"))

	got, err := DecodeRequest(v)
	require.NoError(t, err)
	assert.Equal(t, req.Filter, got.Filter)
	assert.Equal(t, req.Limit, got.Limit)
	assert.Equal(t, req.ActiveType, got.ActiveType)
	require.NotNil(t, got.Cursors)
	assert.Nil(t, got.Cursors.Collaborations)
	require.NotNil(t, got.Cursors.Partners)
	assert.True(t, got.Cursors.Partners.IsStart())
	require.NotNil(t, got.Cursors.Projects)
	assert.True(t, got.Cursors.Projects.CreatedAt.Equal(proj.CreatedAt))
}

func TestDecodeRequestFirstPage(t *testing.T) {
	got, err := DecodeRequest(url.Values{ParamStatus: {"open, in_progress"}})
	require.NoError(t, err)
	assert.Nil(t, got.Cursors)
	assert.Equal(t, DefaultStatuses, got.Filter.Statuses)
}

func TestDecodeRequestRejectsGarbage(t *testing.T) {
	for name, v := range map[string]url.Values{
		"type":   {ParamType: {"event"}},
		"limit":  {ParamLimit: {"ten"}},
		"cursor": {ParamContinue: {"1"}, "projects_cursor": {"!!"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRequest(v)
			assert.Error(t, err)
		})
	}
}

func TestPageResponse(t *testing.T) {
	next := Cursor{CreatedAt: baseTime.Add(-time.Hour), ID: "c-9"}
	page := PageResult{
		Collaborations: []FeedItem{{Type: TypeCollaboration, ID: "c-1"}},
		Cursors:        Cursors{Collaborations: &next},
	}
	resp := NewPageResponse(page)
	assert.NotNil(t, resp.Projects)
	assert.Len(t, resp.Cursors, 1)

	back, err := resp.Result()
	require.NoError(t, err)
	assert.Nil(t, back.Cursors.Projects)
	require.NotNil(t, back.Cursors.Collaborations)
	assert.Equal(t, "c-9", back.Cursors.Collaborations.ID)
}
