package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"altarmaker/internal/auth"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Users.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("admin: list users failed")
		writeError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}
	if users == nil {
		users = []auth.User{}
	}

	// auth.User omits the password hash and tokens from JSON.
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

type createAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (s *Server) handleCreateAdminUser(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var req createAdminRequest
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

	hashed, err := s.Hasher.Hash(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("admin: password hash failed")
		writeError(w, http.StatusInternalServerError, "Failed to create admin user")
		return
	}

	// Admin-created accounts skip email verification; the creating admin
	// vouches for the address.
	now := time.Now().UTC()
	user := &auth.User{
		Username:      req.Username,
		Email:         req.Email,
		PasswordHash:  hashed,
		Role:          auth.RoleAdmin,
		EmailVerified: true,
		VerifiedAt:    &now,
		IsActive:      true,
		CreatedAt:     now,
		CreatedBy:     sess.UserID,
	}

	id, err := s.Users.Create(r.Context(), user)
	if err == auth.ErrDuplicateUser {
		writeError(w, http.StatusConflict, "User with this email or username already exists")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("admin: create admin failed")
		writeError(w, http.StatusInternalServerError, "Failed to create admin user")
		return
	}
	user.ID = id

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Admin user created successfully",
		"user":    user,
	})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if id == sess.UserID {
		writeError(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}

	err := s.Users.Delete(r.Context(), id)
	switch err {
	case nil:
	case auth.ErrInvalidUserID:
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	case auth.ErrUserNotFound:
		writeError(w, http.StatusNotFound, "User not found")
		return
	default:
		log.Error().Err(err).Str("user_id", id).Msg("admin: delete user failed")
		writeError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	if err := s.Designs.DeleteSessionsByUser(r.Context(), id); err != nil {
		log.Warn().Err(err).Str("user_id", id).Msg("admin: cascade session delete failed")
	}

	s.audit(r.Context(), auth.AuditUserDeleted, id, clientIP(r, s.trustedProxies), map[string]interface{}{"by": sess.UserID})

	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

func (s *Server) handlePromoteUser(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if id == sess.UserID {
		writeError(w, http.StatusBadRequest, "You are already an admin")
		return
	}

	set := map[string]interface{}{
		"role":       auth.RoleAdmin,
		"updated_at": time.Now().UTC(),
	}
	err := s.Users.UpdateFields(r.Context(), id, set)
	switch err {
	case nil:
	case auth.ErrInvalidUserID:
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	case auth.ErrUserNotFound:
		writeError(w, http.StatusNotFound, "User not found")
		return
	default:
		log.Error().Err(err).Str("user_id", id).Msg("admin: promote user failed")
		writeError(w, http.StatusInternalServerError, "Failed to promote user")
		return
	}

	s.audit(r.Context(), auth.AuditUserPromoted, id, clientIP(r, s.trustedProxies), map[string]interface{}{"by": sess.UserID})

	writeJSON(w, http.StatusOK, map[string]string{"message": "User promoted to admin successfully"})
}

func (s *Server) handleDemoteUser(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if id == sess.UserID {
		writeError(w, http.StatusBadRequest, "You cannot demote yourself")
		return
	}

	user, err := s.Users.FindByID(r.Context(), id)
	if err == auth.ErrInvalidUserID {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", id).Msg("admin: demote lookup failed")
		writeError(w, http.StatusInternalServerError, "Failed to demote user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if user.Role != auth.RoleAdmin {
		writeError(w, http.StatusBadRequest, "User is already a regular user")
		return
	}

	set := map[string]interface{}{
		"role":       auth.RoleUser,
		"updated_at": time.Now().UTC(),
	}
	if err := s.Users.UpdateFields(r.Context(), id, set); err != nil {
		log.Error().Err(err).Str("user_id", id).Msg("admin: demote user failed")
		writeError(w, http.StatusInternalServerError, "Failed to demote user")
		return
	}

	s.audit(r.Context(), auth.AuditUserDemoted, id, clientIP(r, s.trustedProxies), map[string]interface{}{"by": sess.UserID})

	writeJSON(w, http.StatusOK, map[string]string{"message": "Admin demoted to regular user successfully"})
}

type userStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

func (s *Server) handleSetUserStatus(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req userStatusRequest
	if err := decodeJSON(r, &req); err != nil || req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "is_active is required")
		return
	}

	if id == sess.UserID {
		writeError(w, http.StatusBadRequest, "Cannot change the status of your own account")
		return
	}

	set := map[string]interface{}{
		"is_active":  *req.IsActive,
		"updated_at": time.Now().UTC(),
	}
	err := s.Users.UpdateFields(r.Context(), id, set)
	switch err {
	case nil:
	case auth.ErrInvalidUserID:
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	case auth.ErrUserNotFound:
		writeError(w, http.StatusNotFound, "User not found")
		return
	default:
		log.Error().Err(err).Str("user_id", id).Msg("admin: status update failed")
		writeError(w, http.StatusInternalServerError, "Failed to update user status")
		return
	}

	message := "User activated successfully"
	if !*req.IsActive {
		message = "User deactivated successfully"
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}
