package inputval

import "testing"

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"alice", true},
		{"alice.smith", true},
		{"a_b-c", true},
		{"Bob42", true},
		{"ab", false},
		{"", false},
		{"has space", false},
		{"emoji☺", false},
		{"averyveryveryverylongusernamethatkeepsgoing", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidUsername(tt.name); got != tt.want {
				t.Errorf("IsValidUsername(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestIsValidObjectID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		// Valid ObjectIDs (24 hex characters)
		{"507f1f77bcf86cd799439011", true},
		{"000000000000000000000000", true},
		{"ffffffffffffffffffffffff", true},
		{"FFFFFFFFFFFFFFFFFFFFFFFF", true}, // uppercase hex is valid

		// Valid with whitespace (trimmed)
		{"  507f1f77bcf86cd799439011  ", true},

		// Invalid ObjectIDs
		{"", false},
		{"   ", false},
		{"507f1f77bcf86cd79943901", false},   // too short (23 chars)
		{"507f1f77bcf86cd7994390111", false}, // too long (25 chars)
		{"507f1f77bcf86cd79943901g", false},  // invalid hex char
		{"not-a-valid-id", false},
		{"12345", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := IsValidObjectID(tt.id)
			if got != tt.want {
				t.Errorf("IsValidObjectID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	type TestInput struct {
		Name  string `validate:"required,max=10" label:"Full name"`
		Email string `validate:"required,email" label:"Email address"`
	}

	tests := []struct {
		name       string
		input      TestInput
		wantErrors bool
		wantFirst  string
	}{
		{
			name:       "valid input",
			input:      TestInput{Name: "John", Email: "john@example.com"},
			wantErrors: false,
		},
		{
			name:       "missing name",
			input:      TestInput{Name: "", Email: "john@example.com"},
			wantErrors: true,
			wantFirst:  "Full name is required.",
		},
		{
			name:       "name too long",
			input:      TestInput{Name: "VeryLongNameThatExceedsLimit", Email: "john@example.com"},
			wantErrors: true,
			wantFirst:  "Full name must be at most 10 characters.",
		},
		{
			name:       "invalid email",
			input:      TestInput{Name: "John", Email: "not-an-email"},
			wantErrors: true,
			wantFirst:  "A valid email address is required.",
		},
		{
			name:       "missing both",
			input:      TestInput{Name: "", Email: ""},
			wantErrors: true,
			wantFirst:  "Full name is required.", // First error
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.input)

			if result.HasErrors() != tt.wantErrors {
				t.Errorf("Validate() HasErrors = %v, want %v", result.HasErrors(), tt.wantErrors)
			}

			if tt.wantErrors && result.First() != tt.wantFirst {
				t.Errorf("Validate() First() = %q, want %q", result.First(), tt.wantFirst)
			}
		})
	}
}

func TestResult_All(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		r := &Result{}
		if r.All() != "" {
			t.Errorf("All() = %q, want empty", r.All())
		}
	})

	t.Run("one error", func(t *testing.T) {
		r := &Result{
			Errors: []FieldError{{Message: "Error 1"}},
		}
		if r.All() != "Error 1" {
			t.Errorf("All() = %q, want %q", r.All(), "Error 1")
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		r := &Result{
			Errors: []FieldError{
				{Message: "Error 1"},
				{Message: "Error 2"},
			},
		}
		want := "Error 1; Error 2"
		if r.All() != want {
			t.Errorf("All() = %q, want %q", r.All(), want)
		}
	})
}

func TestResult_First(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		r := &Result{}
		if r.First() != "" {
			t.Errorf("First() = %q, want empty", r.First())
		}
	})

	t.Run("with errors", func(t *testing.T) {
		r := &Result{
			Errors: []FieldError{
				{Message: "First error"},
				{Message: "Second error"},
			},
		}
		if r.First() != "First error" {
			t.Errorf("First() = %q, want %q", r.First(), "First error")
		}
	})
}

func TestValidate_CustomRules(t *testing.T) {
	type GroupInput struct {
		JoinMode string `validate:"required,joinmode" label:"Join mode"`
		PostMode string `validate:"required,postmode" label:"Post mode"`
	}

	type ReviewInput struct {
		Action string `validate:"required,reviewaction" label:"Action"`
		Level  string `validate:"omitempty,level" label:"Permission level"`
	}

	type SubmitInput struct {
		Type    string `validate:"required,reqtype" label:"Request type"`
		GroupID string `validate:"omitempty,objectid" label:"Group ID"`
	}

	type OTPInput struct {
		Code string `validate:"required,otpcode" label:"Code"`
	}

	cases := []struct {
		name  string
		input any
		want  bool // want errors
	}{
		{"valid modes", GroupInput{JoinMode: "OPEN", PostMode: "APPROVED_MEMBERS"}, false},
		{"bad join mode", GroupInput{JoinMode: "open", PostMode: "ADMIN_ONLY"}, true},
		{"bad post mode", GroupInput{JoinMode: "REQUEST", PostMode: "ANYONE"}, true},
		{"approve without level", ReviewInput{Action: "APPROVE"}, false},
		{"approve with level", ReviewInput{Action: "APPROVE", Level: "post_access"}, false},
		{"bad level", ReviewInput{Action: "APPROVE", Level: "owner"}, true},
		{"bad action", ReviewInput{Action: "MAYBE"}, true},
		{"create group without id", SubmitInput{Type: "CREATE_GROUP"}, false},
		{"join with id", SubmitInput{Type: "JOIN", GroupID: "507f1f77bcf86cd799439011"}, false},
		{"bad type", SubmitInput{Type: "LEAVE"}, true},
		{"bad group id", SubmitInput{Type: "JOIN", GroupID: "nope"}, true},
		{"six digits", OTPInput{Code: "012345"}, false},
		{"five digits", OTPInput{Code: "12345"}, true},
		{"letters", OTPInput{Code: "12a456"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := Validate(tc.input)
			if result.HasErrors() != tc.want {
				t.Errorf("Validate(%+v) HasErrors = %v, want %v (%s)", tc.input, result.HasErrors(), tc.want, result.All())
			}
		})
	}
}

func TestValidate_Messages(t *testing.T) {
	type input struct {
		JoinMode string `json:"joinMode" validate:"required,joinmode"`
	}
	result := Validate(input{JoinMode: "x"})
	want := "joinMode must be OPEN, REQUEST or INVITE_ONLY."
	if result.First() != want {
		t.Errorf("First() = %q, want %q", result.First(), want)
	}
	if result.Errors[0].Tag != "joinmode" {
		t.Errorf("Tag = %q, want joinmode", result.Errors[0].Tag)
	}
}
