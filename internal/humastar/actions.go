package humastar

import "fmt"

// Action is a state-dependent hypermedia action. The same value drives the
// RFC 8288 Link headers of API responses and the buttons of marker popups.
//
// Example Link header output:
//
//	</api/v1/maps/42/route>; rel="clear-route"; method="DELETE"; title="Hapus rute"
type Action struct {
	Rel    string `json:"rel"`             // events, clear-route, profile, whatsapp, route
	Href   string `json:"href"`            // link target, or the endpoint for server callbacks
	Method string `json:"method"`          // GET for plain links, POST/DELETE for callbacks
	Title  string `json:"title,omitempty"` // button label
}

// Actor is implemented by response bodies that provide state-dependent actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as a Link header value with method and
// title extension parameters.
func (a Action) LinkHeader() string {
	h := fmt.Sprintf(`<%s>; rel="%s"`, a.Href, a.Rel)
	if a.Method != "" {
		h += fmt.Sprintf(`; method="%s"`, a.Method)
	}
	if a.Title != "" {
		h += fmt.Sprintf(`; title="%s"`, a.Title)
	}
	return h
}

// Callback reports whether following the action calls back into the server
// rather than navigating away.
func (a Action) Callback() bool {
	return a.Method != "" && a.Method != "GET"
}

// ActionDef is a reusable action template. Pattern takes a single %s verb.
type ActionDef struct {
	Rel     string
	Pattern string
	Method  string
	Title   string
}

// For fills the pattern with arg.
func (d ActionDef) For(arg string) Action {
	return Action{
		Rel:    d.Rel,
		Href:   fmt.Sprintf(d.Pattern, arg),
		Method: d.Method,
		Title:  d.Title,
	}
}

// ActionsFor expands every def for one resource ID.
func ActionsFor(id string, defs []ActionDef) []Action {
	actions := make([]Action, len(defs))
	for i, d := range defs {
		actions[i] = d.For(id)
	}
	return actions
}
