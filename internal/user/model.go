package user

import "time"

// User is an account able to log in. Password holds the bcrypt hash and
// RefreshToken the single live refresh token, "" when none was issued.
type User struct {
	ID           int64     `json:"id"`
	Login        string    `json:"login"`
	Password     string    `json:"-"`
	Roles        []string  `json:"roles"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
