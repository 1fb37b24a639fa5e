package dto

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required,min=10,max=512"`
	Platform string `json:"platform" validate:"required,oneof=android ios web"`
}
