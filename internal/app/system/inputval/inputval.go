// Package inputval validates decoded request bodies with go-playground/validator
// and turns failures into short, user-facing messages.
//
// Struct fields carry `validate` rules and an optional `label` used in
// messages:
//
//	type createGroupInput struct {
//	    Name     string `json:"name" validate:"required,max=100" label:"Group name"`
//	    JoinMode string `json:"joinMode" validate:"required,joinmode" label:"Join mode"`
//	}
package inputval

import (
	"fmt"
	"net/mail"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if label := f.Tag.Get("label"); label != "" {
				return label
			}
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		registerRules(v)
		validate = v
	})
	return validate
}

// FieldError is one failed rule on one field.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

// Result collects the failures from a Validate call.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool {
	return r != nil && len(r.Errors) > 0
}

// First returns the first message, or "".
func (r *Result) First() string {
	if !r.HasErrors() {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Validate runs the struct's rules. A non-struct argument is reported as a
// single error rather than a panic.
func Validate(s any) *Result {
	res := &Result{}
	err := instance().Struct(s)
	if err == nil {
		return res
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		res.Errors = append(res.Errors, FieldError{Message: "Invalid input."})
		return res
	}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: message(fe),
		})
	}
	return res
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	case "email":
		return "A valid email address is required."
	case "username":
		return label + " may contain only letters, digits, dots, dashes and underscores (3 to 32 characters)."
	case "otpcode":
		return label + " must be a 6-digit code."
	case "joinmode":
		return label + " must be OPEN, REQUEST or INVITE_ONLY."
	case "postmode":
		return label + " must be OPEN_POSTING, ADMIN_ONLY or APPROVED_MEMBERS."
	case "level":
		return label + " is not a valid permission level."
	case "reqtype":
		return label + " is not a valid request type."
	case "reviewaction":
		return label + " must be APPROVE or REJECT."
	case "objectid":
		return label + " is not a valid id."
	default:
		return label + " is invalid."
	}
}

// IsValidEmail reports whether s is a bare address (no display name) with
// well-formed dot placement on both sides of the @.
func IsValidEmail(s string) bool {
	if s == "" || strings.TrimSpace(s) != s || strings.ContainsAny(s, " <>\t") {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	for _, part := range []string{s[:at], s[at+1:]} {
		if strings.HasPrefix(part, ".") || strings.HasSuffix(part, ".") || strings.Contains(part, "..") {
			return false
		}
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
