package route

import (
	"pico/hook"
	"pico/view"
)

// RouteHandler describes what runs when a route matches for one
// method. All fields are optional; a handler with no function name
// returns a null payload after its hooks run.
type RouteHandler struct {
	View         *view.View
	FunctionName string
	PreProcess   hook.Hook
	PostProcess  hook.Hook
	SetSession   hook.Hook
}

// Route is the set of per-method handlers registered under one route
// key.
type Route struct {
	// Path is the registered path as written in the route table,
	// kept for logging and the admin route dump.
	Path        string
	Definitions map[Method]RouteHandler
}

// Key reduces a registered path to its canonical route key: the
// concatenation of its non-empty segments, parameterized segments
// keeping their ":name" token. The same reduction is produced by
// Tree.Resolve for incoming paths, so "/users/:id" and "/users/42"
// meet at the same key.
func Key(path string) string {
	var b []byte
	for _, seg := range splitSegments(path) {
		b = append(b, seg...)
	}
	return string(b)
}

func splitSegments(path string) []string {
	var segs []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				segs = append(segs, path[start:i])
			}
			start = i + 1
		}
	}
	return segs
}
