package server

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"altarmaker/internal/auth"
	"altarmaker/internal/store"
)

// In-memory collaborators standing in for Mongo, Redis and SMTP.

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int
	users  map[string]*auth.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*auth.User{}}
}

func (f *fakeUserStore) FindByUsernameOrEmail(_ context.Context, value string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == value || u.Email == strings.ToLower(value) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) FindByID(_ context.Context, id string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, nil
}

func (f *fakeUserStore) List(_ context.Context) ([]auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []auth.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUserStore) Create(_ context.Context, u *auth.User) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == email {
			return "", auth.ErrDuplicateUser
		}
	}
	f.nextID++
	id := fmt.Sprintf("user-%d", f.nextID)
	clone := *u
	clone.ID = id
	clone.Email = email
	f.users[id] = &clone
	return id, nil
}

func (f *fakeUserStore) UpdateFields(_ context.Context, id string, set map[string]interface{}, unset ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	for field, val := range set {
		switch field {
		case "email_verified":
			u.EmailVerified = val.(bool)
		case "verified_at":
			t := val.(time.Time)
			u.VerifiedAt = &t
		case "verification_token":
			tok := val.(string)
			u.VerificationToken = &tok
		case "verification_sent_at":
			t := val.(time.Time)
			u.VerificationSentAt = &t
		case "last_login":
			t := val.(time.Time)
			u.LastLogin = &t
		case "role":
			u.Role = val.(string)
		case "is_active":
			u.IsActive = val.(bool)
		}
	}
	for _, field := range unset {
		switch field {
		case "verification_token":
			u.VerificationToken = nil
		case "verification_sent_at":
			u.VerificationSentAt = nil
		}
	}
	return nil
}

func (f *fakeUserStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return auth.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

// get returns the live record for direct test mutation.
func (f *fakeUserStore) get(id string) *auth.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id]
}

func (f *fakeUserStore) byEmail(email string) *auth.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			return u
		}
	}
	return nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]auth.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]auth.Session{}}
}

func (f *fakeSessionStore) Create(_ context.Context, sess auth.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sess.ID] = sess
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, id string) (*auth.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[id]
	if !ok || !sess.LoggedIn || sess.ExpiresAt.Before(time.Now()) {
		return nil, nil
	}
	clone := sess
	return &clone, nil
}

func (f *fakeSessionStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (f *fakeMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("smtp unavailable")
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (f *fakeMailer) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeLimiter is open by default; tests flip the lock fields to drive the
// throttled branches.
type fakeLimiter struct {
	mu sync.Mutex

	banned         bool
	registerLocked bool
	verifyLocked   bool
	lockRetryIn    time.Duration
	cooldown       time.Duration

	loginFailures int
	loginResets   int
	cooldownsSet  int
	registerCalls int
	verifyCalls   int
}

func (f *fakeLimiter) IsIPBanned(context.Context, string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.banned
}

func (f *fakeLimiter) RegisterLoginFailure(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginFailures++
	return nil
}

func (f *fakeLimiter) ResetLogin(context.Context, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginResets++
}

func (f *fakeLimiter) RegisterRegisterAttempt(context.Context, string, string) (bool, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerCalls++
	return f.registerLocked, f.lockRetryIn, nil
}

func (f *fakeLimiter) RegisterVerifyAttempt(context.Context, string) (bool, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	return f.verifyLocked, f.lockRetryIn, nil
}

func (f *fakeLimiter) ResendCooldownTTL(context.Context, string) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cooldown
}

func (f *fakeLimiter) SetResendCooldown(context.Context, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cooldownsSet++
}

type fakeDesignStore struct {
	mu       sync.Mutex
	nextID   int
	designs  []store.WallDesign
	sessions map[string]store.DesignSession
}

func newFakeDesignStore() *fakeDesignStore {
	return &fakeDesignStore{sessions: map[string]store.DesignSession{}}
}

func (f *fakeDesignStore) LatestWallDesign(_ context.Context, userID string) (*store.WallDesign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.designs) - 1; i >= 0; i-- {
		if f.designs[i].UserID == userID {
			clone := f.designs[i]
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeDesignStore) SaveWallDesign(_ context.Context, d *store.WallDesign) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	d.ID = fmt.Sprintf("design-%d", f.nextID)
	f.designs = append(f.designs, *d)
	return d.ID, nil
}

func (f *fakeDesignStore) ListSessions(_ context.Context, userID string) ([]store.DesignSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.DesignSession
	for _, ds := range f.sessions {
		if ds.UserID == userID {
			out = append(out, ds)
		}
	}
	return out, nil
}

func (f *fakeDesignStore) CreateSession(_ context.Context, ds *store.DesignSession) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ds.ID = fmt.Sprintf("session-%d", f.nextID)
	f.sessions[ds.ID] = *ds
	return ds.ID, nil
}

func (f *fakeDesignStore) GetSession(_ context.Context, userID, id string) (*store.DesignSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.sessions[id]
	if !ok || ds.UserID != userID {
		return nil, store.ErrNotFound
	}
	clone := ds
	return &clone, nil
}

func (f *fakeDesignStore) UpdateSession(_ context.Context, userID, id string, upd *store.DesignSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.sessions[id]
	if !ok || ds.UserID != userID {
		return store.ErrNotFound
	}
	ds.Name = upd.Name
	ds.RoomType = upd.RoomType
	ds.RoomDimensions = upd.RoomDimensions
	ds.WallDesigns = upd.WallDesigns
	ds.SelectedWall = upd.SelectedWall
	f.sessions[id] = ds
	return nil
}

func (f *fakeDesignStore) DeleteSession(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.sessions[id]
	if !ok || ds.UserID != userID {
		return store.ErrNotFound
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeDesignStore) DeleteSessionsByUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ds := range f.sessions {
		if ds.UserID == userID {
			delete(f.sessions, id)
		}
	}
	return nil
}

type fakeFeedbackStore struct {
	mu      sync.Mutex
	nextID  int
	entries []store.Feedback
}

func (f *fakeFeedbackStore) Insert(_ context.Context, fb *store.Feedback) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	fb.ID = fmt.Sprintf("feedback-%d", f.nextID)
	f.entries = append(f.entries, *fb)
	return fb.ID, nil
}

func (f *fakeFeedbackStore) List(_ context.Context) ([]store.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.Feedback, len(f.entries))
	copy(out, f.entries)
	return out, nil
}
