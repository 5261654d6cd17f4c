package dto

import "time"

type CreateAccountRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

type ChangeInfoRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
}

type ChangeEmailRequest struct {
	Email string `json:"email"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type UserResponse struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email,omitempty"`
	DisplayName     string    `json:"display_name"`
	Avatar          string    `json:"avatar,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	IsVerified      bool      `json:"is_verified"`
	IsEmailVerified bool      `json:"is_email_verified"`
	IsTotpEnabled   bool      `json:"is_totp_enabled"`
	CreatedAt       time.Time `json:"created_at"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type AvatarResponse struct {
	Avatar string `json:"avatar"`
}
