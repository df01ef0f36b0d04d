package middleware

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/role"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/frahmantamala/expense-approval/pkg/logger"
)

// RequireRoles lets the request through only when the caller holds one of roles.
// Must run after Authenticate.
func RequireRoles(lg *slog.Logger, roles ...role.Role) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(lg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := base.Principal(w, r)
			if !ok {
				return
			}

			for _, allowed := range roles {
				if p.Role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.From(r.Context()).Warn("access denied: role not permitted",
				"role", p.Role,
				"required_roles", roles)
			base.WriteAppError(w, internal.ErrForbidden)
		})
	}
}

// RequireApprover admits every role that may decide on expenses.
func RequireApprover(lg *slog.Logger) func(http.Handler) http.Handler {
	return RequireRoles(lg, role.Approvers()...)
}
