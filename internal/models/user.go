package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultRoleName = "Junior"

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`

	Username    string  `bson:"username" json:"username"`
	Email       string  `bson:"email" json:"email"`
	Fullname    string  `bson:"fullname" json:"fullname"`
	PhoneNumber string  `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	Role        RoleSet `bson:"role" json:"role"`
	RoleName    string  `bson:"roleName" json:"roleName"`

	// Avatar hosted by the image provider
	Avatar   string `bson:"avatar,omitempty" json:"avatar,omitempty"`
	PublicID string `bson:"publicID,omitempty" json:"publicID,omitempty"`

	IsVerified bool `bson:"isVerified" json:"isVerified"`

	// Internal only - never returned in JSON
	Password             string     `bson:"password,omitempty" json:"-"`
	RefreshTokenHash     string     `bson:"refreshToken,omitempty" json:"-"`
	VerificationToken    string     `bson:"verificationToken,omitempty" json:"-"`
	PasswordResetToken   string     `bson:"passwordResetToken,omitempty" json:"-"`
	PasswordResetExpires *time.Time `bson:"passwordResetExpires,omitempty" json:"-"`
}

// Sanitized returns a copy without secrets, the shape attached to requests.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Password = ""
	cp.RefreshTokenHash = ""
	cp.VerificationToken = ""
	cp.PasswordResetToken = ""
	cp.PasswordResetExpires = nil
	cp.Role = append(RoleSet(nil), u.Role...)
	return &cp
}

// AccountUpdate carries the profile fields a user may change.
type AccountUpdate struct {
	Fullname    string
	Username    string
	Email       string
	PhoneNumber string
}
