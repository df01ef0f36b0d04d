package auth

// SignupDTO registers a new company together with its first Admin.
type SignupDTO struct {
	CompanyName string `json:"company_name" validate:"required,max=120"`
	Country     string `json:"country" validate:"omitempty,max=64"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	Name        string `json:"name" validate:"required,max=120"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
}

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenDTO for refresh token requests
type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type SignupResponse struct {
	CompanyID int64      `json:"company_id"`
	UserID    int64      `json:"user_id"`
	Tokens    AuthTokens `json:"tokens"`
}
