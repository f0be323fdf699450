// dto.go

package auth

type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email,max=50"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type APIKeyResponse struct {
	APIKey string `json:"api_key"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirmRequest struct {
	Key      string `json:"key" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}
