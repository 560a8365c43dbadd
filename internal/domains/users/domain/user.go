package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrEmptyUsername = errors.New("username is required")
	ErrInvalidEmail  = errors.New("email must contain '@'")
)

// User is the purchasing customer. Notification contact fields are optional.
type User struct {
	ID          int64
	Username    string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	DeviceToken string
	CreatedAt   time.Time
}

// NewUser builds a user ensuring required invariants.
func NewUser(username, email string) (*User, error) {
	user := &User{}
	if err := user.SetUsername(username); err != nil {
		return nil, err
	}
	if err := user.UpdateContact(email, "", ""); err != nil {
		return nil, err
	}
	return user, nil
}

// SetUsername trims and validates the username.
func (u *User) SetUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrEmptyUsername
	}
	u.Username = username
	return nil
}

// UpdateContact replaces the channels notifications are delivered to.
func (u *User) UpdateContact(email, phone, deviceToken string) error {
	email = strings.TrimSpace(email)
	if email != "" && !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	u.Email = email
	u.Phone = strings.TrimSpace(phone)
	u.DeviceToken = strings.TrimSpace(deviceToken)
	return nil
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Validate re-applies core invariants for persistence.
func (u *User) Validate() error {
	if err := u.SetUsername(u.Username); err != nil {
		return err
	}
	return u.UpdateContact(u.Email, u.Phone, u.DeviceToken)
}
