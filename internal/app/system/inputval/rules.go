package inputval

import (
	"regexp"

	"github.com/dalemusser/campusboard/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	usernameRE = regexp.MustCompile(`^[A-Za-z0-9._-]{3,32}$`)
	otpCodeRE  = regexp.MustCompile(`^[0-9]{6}$`)
)

func registerRules(v *validator.Validate) {
	// validator's built-in email accepts display-name forms; use ours.
	_ = v.RegisterValidation("email", func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return IsValidUsername(fl.Field().String())
	})
	_ = v.RegisterValidation("otpcode", func(fl validator.FieldLevel) bool {
		return otpCodeRE.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("joinmode", func(fl validator.FieldLevel) bool {
		return models.JoinMode(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("postmode", func(fl validator.FieldLevel) bool {
		return models.PostMode(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("level", func(fl validator.FieldLevel) bool {
		return models.PermissionLevel(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("reqtype", func(fl validator.FieldLevel) bool {
		return models.RequestType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("reviewaction", func(fl validator.FieldLevel) bool {
		return models.ReviewAction(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return IsValidObjectID(fl.Field().String())
	})
}

// IsValidUsername reports whether s is 3-32 letters, digits, dots, dashes
// or underscores.
func IsValidUsername(s string) bool {
	return usernameRE.MatchString(s)
}

// IsValidObjectID reports whether s is a 24-character hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}
