package explore

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Paramètres de GET /v1/explore.
const (
	ParamType     = "type"
	ParamCategory = "category"
	ParamStatus   = "status"
	ParamQuery    = "q"
	ParamLimit    = "limit"
	// ParamContinue=1 signale une page suivante: un *_cursor absent vaut alors "épuisé".
	ParamContinue = "continue"
)

func cursorParam(t EntityType) string {
	switch t {
	case TypeProject:
		return "projects_cursor"
	case TypeCollaboration:
		return "collaborations_cursor"
	default:
		return "partners_cursor"
	}
}

// PageResponse est la forme JSON d'une PageResult.
type PageResponse struct {
	Projects       []FeedItem            `json:"projects"`
	Collaborations []FeedItem            `json:"collaborations"`
	Partners       []FeedItem            `json:"partners"`
	Cursors        map[EntityType]string `json:"cursors"`
}

func NewPageResponse(p PageResult) PageResponse {
	nonNil := func(items []FeedItem) []FeedItem {
		if items == nil {
			return []FeedItem{}
		}
		return items
	}
	return PageResponse{
		Projects:       nonNil(p.Projects),
		Collaborations: nonNil(p.Collaborations),
		Partners:       nonNil(p.Partners),
		Cursors:        p.Cursors.Tokens(),
	}
}

func (r PageResponse) Result() (PageResult, error) {
	cursors, err := CursorsFromTokens(r.Cursors)
	if err != nil {
		return PageResult{}, err
	}
	return PageResult{
		Projects:       r.Projects,
		Collaborations: r.Collaborations,
		Partners:       r.Partners,
		Cursors:        cursors,
	}, nil
}

// EncodeRequest sérialise une Request en paramètres de requête.
func EncodeRequest(req Request) url.Values {
	v := url.Values{}
	if req.ActiveType != "" {
		v.Set(ParamType, string(req.ActiveType))
	}
	if req.Filter.Category != "" {
		v.Set(ParamCategory, req.Filter.Category)
	}
	for _, s := range req.Filter.Statuses {
		v.Add(ParamStatus, string(s))
	}
	if req.Filter.SearchQuery != "" {
		v.Set(ParamQuery, req.Filter.SearchQuery)
	}
	if req.Limit > 0 {
		v.Set(ParamLimit, strconv.Itoa(req.Limit))
	}
	if req.Cursors != nil {
		v.Set(ParamContinue, "1")
		for t, tok := range req.Cursors.Tokens() {
			v.Set(cursorParam(t), tok)
		}
	}
	return v
}

// DecodeRequest est l'inverse de EncodeRequest. Les statuts acceptent aussi
// une liste séparée par des virgules.
func DecodeRequest(v url.Values) (Request, error) {
	var req Request
	if t := EntityType(v.Get(ParamType)); t != "" {
		if !t.Valid() {
			return Request{}, fmt.Errorf("unknown entity type %q", t)
		}
		req.ActiveType = t
	}
	req.Filter.Category = v.Get(ParamCategory)
	req.Filter.SearchQuery = v.Get(ParamQuery)
	for _, raw := range v[ParamStatus] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				req.Filter.Statuses = append(req.Filter.Statuses, Status(s))
			}
		}
	}
	if raw := v.Get(ParamLimit); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Request{}, fmt.Errorf("invalid limit %q", raw)
		}
		req.Limit = n
	}
	if v.Get(ParamContinue) == "1" {
		tokens := make(map[EntityType]string, len(AllTypes))
		for _, t := range AllTypes {
			if tok := v.Get(cursorParam(t)); tok != "" {
				tokens[t] = tok
			}
		}
		cursors, err := CursorsFromTokens(tokens)
		if err != nil {
			return Request{}, err
		}
		req.Cursors = &cursors
	}
	return req, nil
}
