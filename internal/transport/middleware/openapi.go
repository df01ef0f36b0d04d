package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/transport"
)

// OpenAPIValidator checks request parameters and bodies against the API
// document. Requests for paths the document does not describe pass through.
type OpenAPIValidator struct {
	router   routers.Router
	basePath string
	base     *transport.BaseHandler
}

// NewOpenAPIValidator loads spec and routes paths relative to basePath.
func NewOpenAPIValidator(spec []byte, basePath string, lg *slog.Logger) (*OpenAPIValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	// paths are matched after stripping basePath ourselves
	doc.Servers = nil

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return &OpenAPIValidator{
		router:   router,
		basePath: strings.TrimSuffix(basePath, "/"),
		base:     transport.NewBaseHandler(lg),
	}, nil
}

func (v *OpenAPIValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vr := r.Clone(r.Context())
		vr.URL.Path = strings.TrimPrefix(r.URL.Path, v.basePath)
		if vr.URL.Path == "" {
			vr.URL.Path = "/"
		}

		route, params, err := v.router.FindRoute(vr)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		err = openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
			Request:    vr,
			PathParams: params,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				MultiError:         false,
			},
		})
		if err != nil {
			v.base.WriteAppError(w, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed))
			return
		}

		// the validator consumed the body and left a rewound copy on vr
		r.Body = vr.Body
		next.ServeHTTP(w, r)
	})
}
