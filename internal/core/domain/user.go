package domain

import "time"

// User is a read-mostly projection of an externally authenticated identity.
// The core never creates or mutates users other than recording login time;
// account creation happens in the out-of-scope OAuth callback.
type User struct {
	ID          string    `json:"id"` // external subject id
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Picture     string    `json:"picture,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}
