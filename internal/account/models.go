package account

import "time"

// User is a person known to the directory. Email and Image are optional
// because not every provider discloses them.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Image     *string   `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LinkedAccount ties a provider identity to a User.
type LinkedAccount struct {
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"provider_account_id"`
	UserID            string    `json:"user_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// SignIn is the profile returned by a provider at the end of an OAuth flow.
type SignIn struct {
	Provider          string
	ProviderAccountID string
	Name              string
	Email             string
	EmailVerified     bool
	Image             string
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
