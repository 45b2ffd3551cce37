package auth

// TokenRequest is the JSON form of the credential payload. The endpoint
// also accepts classic form encoding with a `username` field.
type TokenRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries a freshly issued access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ResetOwnPasswordRequest is the payload for POST /auth/reset-password.
type ResetOwnPasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}
