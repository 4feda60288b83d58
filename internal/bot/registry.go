package bot

import (
	"context"
	"strings"

	"github.com/sardorbek21324/Kairos-team/internal/models"
	"github.com/sardorbek21324/Kairos-team/internal/service"
)

// HandlerFunc serves one routed interaction.
type HandlerFunc func(ctx context.Context, in models.Interaction, r service.Responder) error

type prefixRoute struct {
	prefix  string
	handler HandlerFunc
}

// Registry maps stable custom IDs to handlers. Exact matches win over
// prefixes; prefixes are tried in registration order.
type Registry struct {
	exact    map[string]HandlerFunc
	prefixes []prefixRoute
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{exact: make(map[string]HandlerFunc)}
}

// Handle registers an exact ID.
func (r *Registry) Handle(id string, h HandlerFunc) {
	r.exact[id] = h
}

// HandlePrefix registers every ID starting with prefix.
func (r *Registry) HandlePrefix(prefix string, h HandlerFunc) {
	r.prefixes = append(r.prefixes, prefixRoute{prefix: prefix, handler: h})
}

// Lookup finds the handler for id.
func (r *Registry) Lookup(id string) (HandlerFunc, bool) {
	if h, ok := r.exact[id]; ok {
		return h, true
	}
	for _, route := range r.prefixes {
		if strings.HasPrefix(id, route.prefix) {
			return route.handler, true
		}
	}
	return nil, false
}

// IDs lists the exact IDs, for startup logging.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.exact)+len(r.prefixes))
	for id := range r.exact {
		ids = append(ids, id)
	}
	for _, route := range r.prefixes {
		ids = append(ids, route.prefix+"*")
	}
	return ids
}
