// Package user owns the user entity and its MongoDB persistence. The
// subscription record lives inline in the user document, so this
// package also backs the billing engine's store interfaces.
package user

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/brokerpad/pkg/subscription"
)

var (
	ErrMobileAlreadyRegistered = errors.New("user: mobile number already registered")
	ErrInvalidMobile           = errors.New("user: invalid mobile number")
	ErrPasswordTooShort        = errors.New("user: password must be at least 6 characters long")
	ErrInvalidCredentials      = errors.New("user: invalid credentials")
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

// User is the persisted account entity. The billing record is stored
// inline so a single document write covers both.
type User struct {
	ID           string    `bson:"_id"`
	FullName     string    `bson:"fullName"`
	Mobile       string    `bson:"mobileNumber"`
	PasswordHash string    `bson:"password"`
	RegisteredAt time.Time `bson:"registrationDate"`

	subscription.Record `bson:",inline"`
}

// New creates a user with a fresh id and a default-inactive record.
func New(fullName, mobile, passwordHash string, now time.Time) *User {
	return &User{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Mobile:       mobile,
		PasswordHash: passwordHash,
		RegisteredAt: now,
		Record: subscription.Record{
			Status: subscription.StatusInactive,
		},
	}
}

var (
	bareMobile = regexp.MustCompile(`^[0-9]{10}$`)
	fullMobile = regexp.MustCompile(`^91[0-9]{10}$`)
)

// NormalizeMobile canonicalizes an Indian mobile number to the
// 91-prefixed twelve-digit form used as the lookup key everywhere.
func NormalizeMobile(mobile string) (string, error) {
	switch {
	case bareMobile.MatchString(mobile):
		return "91" + mobile, nil
	case fullMobile.MatchString(mobile):
		return mobile, nil
	default:
		return "", ErrInvalidMobile
	}
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against the stored hash.
// Returns ErrInvalidCredentials on mismatch.
func (u *User) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
