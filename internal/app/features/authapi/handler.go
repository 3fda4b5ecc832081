// internal/app/features/authapi/handler.go
package authapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/campusboard/internal/app/services/credentials"
	"github.com/dalemusser/campusboard/internal/app/system/auth"
	"github.com/dalemusser/campusboard/internal/app/system/httpjson"
	"github.com/dalemusser/campusboard/internal/app/system/timeouts"
	"github.com/dalemusser/campusboard/internal/domain/models"
	"go.uber.org/zap"
)

type Handler struct {
	Verifier *credentials.Verifier
	Log      *zap.Logger

	// RegistrationOTP stages POST /register behind an emailed code.
	RegistrationOTP bool
}

// NewHandler constructs the auth API handler.
func NewHandler(v *credentials.Verifier, registrationOTP bool, logger *zap.Logger) *Handler {
	return &Handler{
		Verifier:        v,
		Log:             logger,
		RegistrationOTP: registrationOTP,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request / response bodies                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

type registerRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type completeRegistrationRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,otpcode" label:"Verification code"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

type verifyOTPRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	OTP      string `json:"otp" validate:"required,otpcode" label:"Verification code"`
}

type userResponse struct {
	User *models.User `json:"user"`
}

type pendingResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type loginResponse struct {
	Status    credentials.LoginStatus `json:"status"`
	Token     string                  `json:"token,omitempty"`
	ExpiresAt *time.Time              `json:"expiresAt,omitempty"`
	User      *models.User            `json:"user,omitempty"`
	Message   string                  `json:"message,omitempty"`
}

type meResponse struct {
	ID            string            `json:"id"`
	Username      string            `json:"username"`
	Email         string            `json:"email"`
	Role          models.SystemRole `json:"role"`
	IsSystemAdmin bool              `json:"isSystemAdmin"`
}

func toLoginResponse(res credentials.LoginResult) loginResponse {
	out := loginResponse{Status: res.Status, Token: res.Token, User: res.User}
	if res.Status == credentials.StatusMFARequired {
		out.Message = "A verification code has been sent to your email."
	}
	if !res.ExpiresAt.IsZero() {
		exp := res.ExpiresAt
		out.ExpiresAt = &exp
	}
	return out
}

/*─────────────────────────────────────────────────────────────────────────────*
| Registration                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleRegister handles POST /auth/register. With registration codes on it
// behaves like /auth/register/init; otherwise the account is created at once.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if h.RegistrationOTP {
		h.HandleRegisterInit(w, r)
		return
	}

	var body registerRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "register")
	defer cancel()

	u, err := h.Verifier.Register(ctx, body.Username, body.Email, body.Password)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, userResponse{User: &u})
}

// HandleRegisterInit handles POST /auth/register/init: stage the account and
// email a REGISTER code.
func (h *Handler) HandleRegisterInit(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "register init")
	defer cancel()

	if err := h.Verifier.BeginRegistration(ctx, body.Username, body.Email, body.Password); err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusAccepted, pendingResponse{
		Status:  "OTP_SENT",
		Message: "A verification code has been sent to your email.",
	})
}

// HandleRegisterComplete handles POST /auth/register/complete.
func (h *Handler) HandleRegisterComplete(w http.ResponseWriter, r *http.Request) {
	var body completeRegistrationRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "register complete")
	defer cancel()

	u, err := h.Verifier.CompleteRegistration(ctx, body.Email, body.OTP)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, userResponse{User: &u})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Login                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleLogin handles POST /auth/login.
//
//	{"status":"AUTHENTICATED","token":"…","expiresAt":"…","user":{…}}
//	{"status":"MFA_REQUIRED","message":"…"}
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "login")
	defer cancel()

	res, err := h.Verifier.BeginLogin(ctx, body.Username, body.Password)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toLoginResponse(res))
}

// HandleVerifyOTP handles POST /auth/verify-otp, the second login step.
func (h *Handler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body verifyOTPRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "verify otp")
	defer cancel()

	res, err := h.Verifier.CompleteLogin(ctx, body.Username, body.OTP)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toLoginResponse(res))
}

// HandleLogout handles POST /auth/logout by revoking the presented token.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	tok, _ := auth.BearerToken(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Verifier.Logout(ctx, tok); err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, httpjson.MessageBody{Message: "Signed out."})
}

// ServeMe handles GET /auth/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	httpjson.Write(w, http.StatusOK, meResponse{
		ID:            u.UserID.Hex(),
		Username:      u.Username,
		Email:         u.Email,
		Role:          u.Role,
		IsSystemAdmin: u.IsSystemAdmin(),
	})
}
