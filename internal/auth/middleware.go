package auth

import (
	"net/http"
	"strings"

	"github.com/kazz187/taskdesk/internal/employee"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/clog"
)

// Middleware rejects requests without a valid bearer token. It must run
// inside cerr.NewConvertErrorChiMiddleware.
func (v *Verifier) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "missing bearer token", nil)
				return
			}
			id, err := v.Verify(token)
			if err != nil {
				cerr.SetJSONError(ctx, err)
				return
			}
			clog.AddAttribute(ctx, "employee_id", id.EmployeeID)
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, id)))
		})
	}
}

func RequireRole(role employee.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok || id.Role != role {
				cerr.SetNewJSONError(r.Context(), cerr.PermissionDenied, "insufficient role", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
