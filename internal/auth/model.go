package auth

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is the identity record owned by the backing store. Accounts are
// provisioned out of band; this service only reads them. The password hash
// never leaves the package.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

type UserInfoResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// createdAtLayout is the wire format for created_at. Existing consumers
// parse this exact layout, so it stays a plain datetime, not RFC 3339.
const createdAtLayout = "2006-01-02 15:04:05"

func formatCreatedAt(t time.Time) string {
	return t.UTC().Format(createdAtLayout)
}
