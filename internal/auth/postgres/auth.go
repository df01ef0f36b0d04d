package auth

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/auth"
	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-approval/internal/core/role"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) auth.Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

type principalRow struct {
	ID        int64
	CompanyID int64
	Email     string
	Role      string
	ManagerID *int64
	Currency  string
}

func (r *Repository) LoadPrincipal(ctx context.Context, userID int64) (*apperrors.Principal, error) {
	query := `SELECT u.id, u.company_id, u.email, u.role, u.manager_id, c.currency
	          FROM users u
	          JOIN companies c ON c.id = u.company_id
	          WHERE u.id = ? AND u.is_active = ?`

	var rows []principalRow
	if err := r.db.WithContext(ctx).Raw(query, userID, true).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	return &apperrors.Principal{
		UserID:    row.ID,
		CompanyID: row.CompanyID,
		Email:     row.Email,
		Role:      role.Role(row.Role),
		ManagerID: row.ManagerID,
		Currency:  row.Currency,
	}, nil
}
