// internal/domain/models/otp.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OTPPurpose separates registration codes from login second-factor codes.
type OTPPurpose string

const (
	OTPRegister OTPPurpose = "REGISTER"
	OTPLoginMFA OTPPurpose = "LOGIN_MFA"
)

// PendingUser is a registration staged until its REGISTER code is confirmed.
// The password is already hashed.
type PendingUser struct {
	Username     string `bson:"username"`
	Email        string `bson:"email"`
	PasswordHash string `bson:"password_hash"`
}

// OTPChallenge is a single-use, time-boxed numeric code.
// At most one challenge exists per (subject, purpose).
type OTPChallenge struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Subject     string             `bson:"subject"` // folded username or email
	Purpose     OTPPurpose         `bson:"purpose"`
	CodeHash    string             `bson:"code_hash"` // bcrypt hash of the 6-digit code
	IssuedAt    time.Time          `bson:"issued_at"`
	ExpiresAt   time.Time          `bson:"expires_at"`
	Consumed    bool               `bson:"consumed"`
	Attempts    int                `bson:"attempts"` // failed verification attempts
	PendingUser *PendingUser       `bson:"pending_user,omitempty"`
}
