package dto

type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Pin      string `json:"pin,omitempty"`
}

type LoginResponse struct {
	User UserResponse `json:"user"`
}

type ResetPasswordRequest struct {
	Email string `json:"email"`
}

type NewPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type DeactivateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ConfirmDeactivateRequest struct {
	Code string `json:"code"`
}

type TotpSetupResponse struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauth_url"`
	QRDataURL  string `json:"qr_data_url"`
}

type EnableTotpRequest struct {
	Secret string `json:"secret"`
	Pin    string `json:"pin"`
}
