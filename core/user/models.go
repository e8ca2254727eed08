package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/darasa/core/quota"
)

// GoogleCredentials is the OAuth token pair granted by a user's Google
// account. RefreshToken is absent when the user never granted offline
// access. Expiry drives silent refresh of the access token.
type GoogleCredentials struct {
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	Expiry       time.Time `json:"-"`
}

func (c GoogleCredentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Limits are the owner's resource ceilings; set from system defaults at
// creation and only changed by a plan upgrade.
type Limits struct {
	Classes     int `json:"classes"`
	Evaluators  int `json:"evaluators"`
	Evaluations int `json:"evaluations"`
}

func (l Limits) Ceiling(res quota.Resource) int {
	switch res {
	case quota.Class:
		return l.Classes
	case quota.Evaluator:
		return l.Evaluators
	case quota.Evaluation:
		return l.Evaluations
	}
	return 0
}

type User struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Email          string            `json:"email"`
	IsAdmin        bool              `json:"is_admin"`
	IsActive       bool              `json:"is_active"`
	ProfilePicture string            `json:"profile_picture"`
	PasswordHash   []byte            `json:"-"`
	GoogleID       string            `json:"-"`
	Credentials    GoogleCredentials `json:"-"`
	Limits         Limits            `json:"limits"`

	VerificationCode   string    `json:"-"`
	VerificationExpiry time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
	LastLogin time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// GoogleLinked reports whether the user completed the Google Classroom grant.
func (u *User) GoogleLinked() bool {
	return u.GoogleID != "" && !u.Credentials.Empty()
}
