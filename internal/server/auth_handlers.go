package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"altarmaker/internal/auth"
	"altarmaker/internal/email"
)

// verificationFreshness is the domain window for verification links. It is
// deliberately tighter than the codec's signature window and governs the
// observed behavior: a signed-but-stale link is rejected.
const verificationFreshness = 15 * time.Minute

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Username, password, and email are required")
		return
	}
	if !validEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "Please enter a valid email address")
		return
	}
	// Admin accounts are only created by existing admins.
	if req.Role == auth.RoleAdmin {
		writeError(w, http.StatusForbidden, "Admin registration is not allowed through public API")
		return
	}

	ctx := r.Context()
	ip := clientIP(r, s.trustedProxies)
	if locked, ttl, err := s.Limiter.RegisterRegisterAttempt(ctx, req.Email, ip); err != nil {
		log.Error().Err(err).Msg("register: rate limit check failed")
		writeError(w, http.StatusInternalServerError, "Registration failed. Please try again.")
		return
	} else if locked {
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":    "Too many signup attempts. Try again later.",
			"cooldown": int64(ttl.Seconds()),
		})
		return
	}

	// Fast-path existence check; unique indexes remain the final arbiter.
	for _, value := range []string{req.Email, req.Username} {
		existing, err := s.Users.FindByUsernameOrEmail(ctx, value)
		if err != nil {
			log.Error().Err(err).Msg("register: user lookup failed")
			writeError(w, http.StatusInternalServerError, "Registration failed. Please try again.")
			return
		}
		if existing != nil {
			writeError(w, http.StatusConflict, "User with this email or username already exists")
			return
		}
	}

	hashed, err := s.Hasher.Hash(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("register: password hash failed")
		writeError(w, http.StatusInternalServerError, "Registration failed. Please try again.")
		return
	}

	token, err := s.Tokens.Issue(req.Email)
	if err != nil {
		log.Error().Err(err).Msg("register: token issue failed")
		writeError(w, http.StatusInternalServerError, "Registration failed. Please try again.")
		return
	}

	now := time.Now().UTC()
	user := &auth.User{
		Username:           req.Username,
		Email:              req.Email,
		PasswordHash:       hashed,
		Role:               auth.RoleUser,
		EmailVerified:      false,
		VerificationToken:  &token,
		VerificationSentAt: &now,
		IsActive:           true,
		CreatedAt:          now,
	}

	id, err := s.Users.Create(ctx, user)
	if err == auth.ErrDuplicateUser {
		writeError(w, http.StatusConflict, "User with this email or username already exists")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("register: create user failed")
		writeError(w, http.StatusInternalServerError, "Registration failed. Please try again.")
		return
	}
	user.ID = id

	body := email.VerificationBody(s.Config.AppURL, token)
	if err := s.Mailer.Send(ctx, user.Email, email.VerificationSubject, body); err != nil {
		// Registration is all-or-nothing: without the email the account
		// could never be verified, so roll the insert back.
		log.Error().Err(err).Str("email", user.Email).Msg("register: verification email failed, rolling back user")
		if delErr := s.Users.Delete(ctx, id); delErr != nil {
			log.Error().Err(delErr).Str("user_id", id).Msg("register: rollback delete failed")
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Failed to send verification email. Please try again.",
			"code":  "EMAIL_DELIVERY_FAILED",
		})
		return
	}

	s.audit(ctx, auth.AuditRegister, id, ip, map[string]interface{}{"username": user.Username})
	log.Info().Str("username", user.Username).Msg("user registered, verification email sent")

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Registration successful! Please check your email to verify your account before logging in.",
		"user": map[string]interface{}{
			"id":             id,
			"username":       user.Username,
			"email":          user.Email,
			"role":           user.Role,
			"email_verified": false,
		},
	})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "Verification link is invalid",
			"message": "The verification link is missing the required token. Please try the link from your email again or request a new verification email.",
			"code":    "MISSING_TOKEN",
		})
		return
	}

	addr, err := s.Tokens.Verify(token, auth.DefaultVerificationMaxAge)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":     "Verification link has expired or is invalid",
			"message":   "This verification link has expired. Please request a new verification email.",
			"code":      "INVALID_OR_EXPIRED_TOKEN",
			"can_retry": true,
		})
		return
	}

	ctx := r.Context()
	if locked, ttl, err := s.Limiter.RegisterVerifyAttempt(ctx, addr); err != nil {
		log.Error().Err(err).Msg("verify: rate limit check failed")
		writeError(w, http.StatusInternalServerError, "Failed to verify email")
		return
	} else if locked {
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":    "Too many verification attempts. Try again later.",
			"cooldown": int64(ttl.Seconds()),
		})
		return
	}

	user, err := s.Users.FindByEmail(ctx, addr)
	if err != nil {
		log.Error().Err(err).Msg("verify: user lookup failed")
		writeError(w, http.StatusInternalServerError, "Failed to verify email")
		return
	}

	// A verified user whose token was already consumed gets an idempotent
	// success, never an error.
	if user != nil && user.EmailVerified {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message":  "Your email has already been verified. You can now log in.",
			"code":     "ALREADY_VERIFIED",
			"redirect": "/login?verified=true",
			"email":    addr,
		})
		return
	}

	// The stored token must match exactly, so a link issued before a resend
	// is dead even while its signature is still valid.
	if user == nil || user.VerificationToken == nil || *user.VerificationToken != token {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":     "Verification failed",
			"message":   "We could not verify your email. The verification link may be invalid or expired. Please request a new verification email.",
			"code":      "VERIFICATION_FAILED",
			"can_retry": true,
			"email":     addr,
		})
		return
	}

	if user.VerificationSentAt != nil && time.Since(*user.VerificationSentAt) > verificationFreshness {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":     "Verification link has expired",
			"message":   "This verification link has expired. Please request a new verification email.",
			"code":      "VERIFICATION_LINK_EXPIRED",
			"can_retry": true,
			"email":     addr,
		})
		return
	}

	set := map[string]interface{}{
		"email_verified": true,
		"verified_at":    time.Now().UTC(),
	}
	if err := s.Users.UpdateFields(ctx, user.ID, set, "verification_token", "verification_sent_at"); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("verify: update failed")
		writeError(w, http.StatusInternalServerError, "Failed to verify email")
		return
	}

	// Welcome email is best effort; verification already succeeded.
	if err := s.Mailer.Send(ctx, user.Email, email.WelcomeSubject, email.WelcomeBody(s.Config.AppURL, user.Username)); err != nil {
		log.Warn().Err(err).Str("email", user.Email).Msg("welcome email failed")
	}

	s.audit(ctx, auth.AuditEmailVerified, user.ID, clientIP(r, s.trustedProxies), nil)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Email verified successfully! You can now log in.",
		"code":     "VERIFICATION_SUCCESS",
		"redirect": "/login?verified=true",
		"user_id":  user.ID,
		"email":    user.Email,
	})
}

type resendVerificationRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendVerificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	ctx := r.Context()
	if ttl := s.Limiter.ResendCooldownTTL(ctx, req.Email); ttl > 0 {
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":    "Please wait before requesting another email.",
			"cooldown": int64(ttl.Seconds()),
		})
		return
	}

	user, err := s.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		log.Error().Err(err).Msg("resend: user lookup failed")
		writeError(w, http.StatusInternalServerError, "Failed to process request")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "No account found with this email")
		return
	}
	if user.EmailVerified {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Email is already verified"})
		return
	}

	token, err := s.Tokens.Issue(user.Email)
	if err != nil {
		log.Error().Err(err).Msg("resend: token issue failed")
		writeError(w, http.StatusInternalServerError, "Failed to process request")
		return
	}

	// Overwriting the stored token invalidates any link sent earlier.
	set := map[string]interface{}{
		"verification_token":   token,
		"verification_sent_at": time.Now().UTC(),
	}
	if err := s.Users.UpdateFields(ctx, user.ID, set); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("resend: update failed")
		writeError(w, http.StatusInternalServerError, "Failed to process request")
		return
	}

	body := email.VerificationBody(s.Config.AppURL, token)
	if err := s.Mailer.Send(ctx, user.Email, email.VerificationSubject, body); err != nil {
		// Unlike registration, the account stays; the user can retry.
		log.Error().Err(err).Str("email", user.Email).Msg("resend: verification email failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Failed to send verification email. Please try again.",
			"code":  "EMAIL_DELIVERY_FAILED",
		})
		return
	}

	s.Limiter.SetResendCooldown(ctx, req.Email)

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "A new verification link has been sent to your email. It will expire in 15 minutes.",
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	ctx := r.Context()
	ip := clientIP(r, s.trustedProxies)

	if s.Limiter.IsIPBanned(ctx, ip) {
		writeError(w, http.StatusForbidden, "Too many failed login attempts. Try again later.")
		return
	}

	user, err := s.Users.FindByUsernameOrEmail(ctx, req.Username)
	if err != nil {
		log.Error().Err(err).Msg("login: user lookup failed")
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if user == nil {
		_ = s.Limiter.RegisterLoginFailure(ctx, ip)
		writeError(w, http.StatusUnauthorized, "No account found with this username/email")
		return
	}
	if !s.Hasher.Compare(user.PasswordHash, req.Password) {
		_ = s.Limiter.RegisterLoginFailure(ctx, ip)
		s.audit(ctx, auth.AuditLoginFailed, user.ID, ip, nil)
		writeError(w, http.StatusUnauthorized, "Incorrect password")
		return
	}
	if req.Role != "" && user.Role != req.Role {
		writeError(w, http.StatusUnauthorized, "Invalid role. Expected "+req.Role)
		return
	}
	if !user.IsActive {
		writeError(w, http.StatusForbidden, "Your account has been deactivated. Please contact support.")
		return
	}

	now := time.Now().UTC()
	if err := s.Users.UpdateFields(ctx, user.ID, map[string]interface{}{"last_login": now}); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("login: last_login update failed")
	}

	sess := auth.Session{
		ID:        auth.NewSessionID(),
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		LoggedIn:  true,
		ExpiresAt: now.Add(s.Config.SessionTTL),
	}
	if err := s.Sessions.Create(ctx, sess); err != nil {
		log.Error().Err(err).Msg("login: session create failed")
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	s.Limiter.ResetLogin(ctx, ip)
	auth.SetSessionCookie(w, sess.ID, sess.ExpiresAt, s.Config.SecureCookies)
	s.audit(ctx, auth.AuditLogin, user.ID, ip, nil)
	log.Info().Str("username", user.Username).Msg("user logged in")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user": map[string]interface{}{
			"id":         user.ID,
			"username":   user.Username,
			"email":      user.Email,
			"role":       user.Role,
			"created_at": user.CreatedAt,
			"last_login": now,
		},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id := auth.SessionIDFromRequest(r); id != "" {
		_ = s.Sessions.Delete(r.Context(), id)
	}
	auth.ClearSessionCookie(w, s.Config.SecureCookies)
	s.audit(r.Context(), auth.AuditLogout, "", clientIP(r, s.trustedProxies), nil)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// handleAuthStatus reports whether the caller is authenticated. It is the
// one read path that can end a session: if the user behind the session is
// gone or deactivated, the session is destroyed on the spot.
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		log.Error().Err(err).Msg("status: session read failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if sess == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
		return
	}

	user, err := s.Users.FindByID(r.Context(), sess.UserID)
	if err != nil && err != auth.ErrInvalidUserID {
		log.Error().Err(err).Msg("status: user lookup failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil || !user.IsActive {
		_ = s.Sessions.Delete(r.Context(), sess.ID)
		auth.ClearSessionCookie(w, s.Config.SecureCookies)
		writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user": map[string]interface{}{
			"id":             user.ID,
			"username":       user.Username,
			"email":          user.Email,
			"role":           user.Role,
			"email_verified": user.EmailVerified,
			"created_at":     user.CreatedAt,
		},
	})
}

func (s *Server) audit(ctx context.Context, event, userID, ip string, meta map[string]interface{}) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Log(ctx, auth.AuditEvent{EventType: event, UserID: userID, IP: ip, Meta: meta}); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("audit log failed")
	}
}
