package converter

import (
	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"
)

// UserToResponse converts a User entity to UserResponse DTO.
// roleName is used when the Role relation was not preloaded.
func UserToResponse(user *entity.User, roleName string) *dto.UserResponse {
	if user == nil {
		return nil
	}
	if user.Role.RoleName != "" {
		roleName = user.Role.RoleName
	}

	return &dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      roleName,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
