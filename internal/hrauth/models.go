// Package hrauth authenticates the HR back-office: persisted users with
// bcrypt password hashes and short-lived HS256 JWTs.
package hrauth

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleRecruta Role = "recrutador"
)

type User struct {
	ID           int64
	Nome         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}
