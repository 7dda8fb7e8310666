package workspace

import (
	"strconv"
	"strings"

	"taskflow/internal/model"
)

type View string

const (
	ViewHome     View = "home"
	ViewTimeline View = "timeline"
	ViewBoard    View = "board"
	ViewList     View = "list"
	ViewGantt    View = "gantt"
	ViewAdmin    View = "admin"
	ViewMembers  View = "members"
	ViewDaily    View = "daily"
	ViewSettings View = "settings"
)

var viewSegment = map[View]string{
	ViewHome:     "overview",
	ViewTimeline: "calendar",
	ViewBoard:    "board",
	ViewList:     "list",
	ViewGantt:    "gantt",
	ViewAdmin:    "admin",
	ViewMembers:  "members",
	ViewDaily:    "daily",
	ViewSettings: "settings",
}

var segmentView = func() map[string]View {
	m := make(map[string]View, len(viewSegment))
	for v, s := range viewSegment {
		m[s] = v
	}
	return m
}()

// Segment is the URL name of v.
func (v View) Segment() string { return viewSegment[v] }

// ViewForSegment maps a URL segment back to its view.
func ViewForSegment(seg string) (View, bool) {
	v, ok := segmentView[strings.ToLower(seg)]
	return v, ok
}

// Route is the navigation target derived from a path. SpaceID 0 is the global context.
type Route struct {
	SpaceID int64
	View    View
}

// ParseRoute resolves "/<space>/<view>" against spaces. The space segment matches an id first,
// then a slug. Unknown spaces fall back to the global context.
func ParseRoute(path string, spaces []model.Space) Route {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s = strings.TrimSpace(s); s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return Route{View: ViewHome}
	}

	if sp := resolveSpace(segs[0], spaces); sp != nil {
		r := Route{SpaceID: sp.ID, View: ViewBoard}
		if len(segs) > 1 {
			if v, ok := ViewForSegment(segs[1]); ok {
				r.View = v
			}
		}
		return r
	}
	if v, ok := ViewForSegment(segs[0]); ok {
		return Route{View: v}
	}
	return Route{View: ViewHome}
}

func resolveSpace(seg string, spaces []model.Space) *model.Space {
	if id, err := strconv.ParseInt(seg, 10, 64); err == nil {
		for i := range spaces {
			if spaces[i].ID == id {
				return &spaces[i]
			}
		}
	}
	slug := model.Slugify(seg)
	if slug == "" {
		return nil
	}
	for i := range spaces {
		if spaces[i].Slug() == slug {
			return &spaces[i]
		}
	}
	return nil
}

// Path renders r. A space whose slug is empty or shared with another space is addressed by id.
func (r Route) Path(spaces []model.Space) string {
	seg := r.View.Segment()
	if seg == "" {
		seg = ViewHome.Segment()
	}
	if r.SpaceID == 0 {
		if r.View == ViewHome || r.View == "" {
			return "/"
		}
		return "/" + seg
	}
	key := strconv.FormatInt(r.SpaceID, 10)
	for i := range spaces {
		if spaces[i].ID != r.SpaceID {
			continue
		}
		slug := spaces[i].Slug()
		if slug != "" && !slugShared(slug, r.SpaceID, spaces) && !isNumeric(slug) {
			key = slug
		}
		break
	}
	return "/" + key + "/" + seg
}

func slugShared(slug string, id int64, spaces []model.Space) bool {
	for i := range spaces {
		if spaces[i].ID != id && spaces[i].Slug() == slug {
			return true
		}
	}
	return false
}

func isNumeric(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}
