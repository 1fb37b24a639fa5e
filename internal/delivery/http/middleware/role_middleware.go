package middleware

import (
	"net/http"
	"slices"

	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/pkg/response"
)

// RequireRole admits requests whose token carries one of the given role IDs.
// It must run after Authenticate.
func RequireRole(allowedRoleIDs ...int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roleID, ok := GetRoleIDFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Role information not found")
				return
			}

			if !slices.Contains(allowedRoleIDs, roleID) {
				response.Forbidden(w, "You don't have permission to access this resource")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(entity.RoleIDAdmin)(next)
}

func RequireDoctor(next http.Handler) http.Handler {
	return RequireRole(entity.RoleIDDoctor)(next)
}

func RequireCustomer(next http.Handler) http.Handler {
	return RequireRole(entity.RoleIDCustomer)(next)
}

// RequireParticipantRole admits the two roles that take part in consultations
func RequireParticipantRole(next http.Handler) http.Handler {
	return RequireRole(entity.RoleIDCustomer, entity.RoleIDDoctor)(next)
}
