package http

import (
	"context"
	"net/http"
	"strings"

	"claimdesk/internal/core"
	"claimdesk/internal/report"
)

// Actor identity headers set by the upstream gateway. The service never
// authenticates; it trusts the forwarded identity.
const (
	headerActorID   = "X-Actor-Id"
	headerActorName = "X-Actor-Name"
	headerActorRole = "X-Actor-Role"
)

type actorKey struct{}

func actorFromHeaders(r *http.Request) report.Actor {
	return report.Actor{
		ID:        strings.TrimSpace(r.Header.Get(headerActorID)),
		Name:      strings.TrimSpace(r.Header.Get(headerActorName)),
		Role:      strings.TrimSpace(r.Header.Get(headerActorRole)),
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func actorFromContext(ctx context.Context) report.Actor {
	actor, _ := ctx.Value(actorKey{}).(report.Actor)
	return actor
}

// requireAdmin guards the report routes: 401 without an identity, 403 for
// any role other than admin.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := actorFromHeaders(r)
		if actor.ID == "" {
			writeMessage(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if actor.Role != string(core.RoleAdmin) {
			s.logger.WarnContext(r.Context(), "Report access denied",
				"actor_id", actor.ID,
				"actor_role", actor.Role,
				"url", r.URL.Path)
			writeMessage(w, http.StatusForbidden, "admin access required")
			return
		}
		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
