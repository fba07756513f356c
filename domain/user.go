package domain

import "time"

// User is a registered account. LastSeen is nil while the user has at
// least one live connection and holds the last offline transition time
// otherwise.
type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"createdAt"`
	LastSeen  *time.Time `json:"lastSeen"`
}

// Presence is the live view of one user derived from the presence
// registry. Invariant: LastSeen is non-nil iff Online is false.
type Presence struct {
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"lastSeen"`
}
