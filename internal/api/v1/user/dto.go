package user

// UserResponse defines the response structure for user information.
type UserResponse struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	Level       int    `json:"level"`
	XP          int64  `json:"xp"`
	IsDeveloper bool   `json:"is_developer"`
	IsActive    bool   `json:"is_active"`
	Token       string `json:"token,omitempty"`
}
