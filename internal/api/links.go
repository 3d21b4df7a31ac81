package api

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/daurin/internal/humastar"
)

// links maps operation paths to their RFC 8288 Link header values.
// Enables restish hypermedia navigation via `restish links <url>`.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/layers>; rel="layers"`,
		`</api/v1/maps>; rel="maps"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/layers": {
		`</api/v1/maps>; rel="maps"`,
	},
	"/api/v1/maps/{id}": {
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/maps/{id}/state": {
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/facilities": {
		`</api/pengepuls>; rel="related"`,
		`</api/pengrajins>; rel="related"`,
		`</api/waste-offers>; rel="related"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link
// headers: the static links of the operation, a self link on item endpoints,
// and the state-dependent actions of bodies implementing humastar.Actor.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if actor, ok := v.(humastar.Actor); ok {
			for _, a := range actor.Actions() {
				ctx.AppendHeader("Link", a.LinkHeader())
			}
		}

		return v, nil
	}
}
