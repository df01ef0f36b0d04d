package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/frahmantamala/expense-approval/pkg/logger"
)

// PrincipalResolver turns a bearer token into the caller identity.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, accessToken string) (*internal.Principal, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// resolved principal in the request context.
func Authenticate(resolver PrincipalResolver, lg *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(lg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := transport.ExtractTokenFromHeader(r)
			if err != nil {
				base.WriteAppError(w, internal.ErrInvalidToken.WithCause(err))
				return
			}

			p, err := resolver.ResolvePrincipal(r.Context(), token)
			if err != nil {
				base.HandleServiceError(w, r, err)
				return
			}

			ctx := internal.ContextWithPrincipal(r.Context(), p)
			ctx = logger.With(ctx, "user_id", p.UserID, "company_id", p.CompanyID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
