package user

import (
	"time"

	"github.com/frahmantamala/expense-approval/internal/core/role"
)

type CreateUserDTO struct {
	Name      string `json:"name" validate:"required,max=120"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Role      string `json:"role" validate:"required"`
	ManagerID *int64 `json:"manager_id,omitempty" validate:"omitempty,min=1"`
}

type UpdateRoleDTO struct {
	Role string `json:"role" validate:"required"`
}

// AssignManagerDTO clears the reporting line when ManagerID is null.
type AssignManagerDTO struct {
	ManagerID *int64 `json:"manager_id" validate:"omitempty,min=1"`
}

type UserResponse struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      role.Role `json:"role"`
	ManagerID *int64    `json:"manager_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type UsersResponse struct {
	Users []UserResponse `json:"users"`
}
