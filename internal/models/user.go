package models

const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

type User struct {
	ID           string `json:"_id,omitempty"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	CreatedAt    string `json:"createdAt"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// CanEdit reports whether the role may change content and use AI tools.
func CanEdit(role string) bool {
	return role == RoleAdmin || role == RoleEditor
}

// CanPublish reports whether the role may move content to published.
func CanPublish(role string) bool {
	return role == RoleAdmin || role == RoleEditor
}

// CanApprove reports whether the role may approve content in review.
func CanApprove(role string) bool {
	return role == RoleAdmin
}
