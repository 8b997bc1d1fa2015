package gateway

type CreateGatewayConfigRequest struct {
	Name   string                 `json:"name" binding:"required"`
	Driver string                 `json:"driver" binding:"required"` // e.g. "dgtpay"
	Config map[string]interface{} `json:"config" binding:"required"`
	Enable bool                   `json:"enable"`
}

type UpdateGatewayConfigRequest struct {
	Name   string                 `json:"name"`
	Config map[string]interface{} `json:"config"`
	Enable *bool                  `json:"enable"` // Pointer to allow false
}

type GatewayConfigResponse struct {
	ID        uint                   `json:"id"`
	UUID      string                 `json:"uuid"`
	Name      string                 `json:"name"`
	Driver    string                 `json:"driver"`
	Config    map[string]interface{} `json:"config"`
	Enable    bool                   `json:"enable"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt string                 `json:"updated_at"`
}
