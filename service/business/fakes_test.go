package business_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/karibuweb/service-admin/service/models"
	"github.com/pitabwire/util"
)

// In memory repository fakes. Mutations mirror the SQL semantics of the
// real implementations, including the atomic lockout update.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Save(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.GetID() == "" {
		user.ID = util.IDString()
	}
	cp := *user
	r.users[user.GetID()] = &cp
	return nil
}

func (r *fakeUserRepo) RecordFailure(_ context.Context, userID string, threshold int, lockedUntil time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil
	}
	if !u.LockedUntil.IsZero() && time.Now().Before(u.LockedUntil) {
		return nil
	}
	u.FailedAttempts++
	if u.FailedAttempts >= threshold {
		u.LockedUntil = lockedUntil
	}
	return nil
}

func (r *fakeUserRepo) ResetLockout(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil
	}
	u.FailedAttempts = 0
	u.LockedUntil = time.Time{}
	return nil
}

func (r *fakeUserRepo) UpdateTwoFactor(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[user.GetID()]
	if !ok {
		return nil
	}
	u.TwoFactorMethod = user.TwoFactorMethod
	u.TwoFactorSecret = user.TwoFactorSecret
	u.TwoFactorVerified = user.TwoFactorVerified
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []*models.LoginAttempt
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{}
}

func (r *fakeAttemptRepo) Create(_ context.Context, attempt *models.LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *attempt
	cp.CreatedAt = time.Now()
	r.attempts = append(r.attempts, &cp)
	return nil
}

func (r *fakeAttemptRepo) ListRecent(_ context.Context, email string, limit int) ([]*models.LoginAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.LoginAttempt
	for _, a := range r.attempts {
		if a.Email == email {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeAttemptRepo) last() *models.LoginAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.attempts) == 0 {
		return nil
	}
	return r.attempts[len(r.attempts)-1]
}

func (r *fakeAttemptRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

type fakeCodeRepo struct {
	mu    sync.Mutex
	codes []*models.TwoFactorCode
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{}
}

func (r *fakeCodeRepo) Issue(_ context.Context, code *models.TwoFactorCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.UserID == code.UserID && !c.Used {
			c.Used = true
		}
	}
	cp := *code
	r.codes = append(r.codes, &cp)
	return nil
}

func (r *fakeCodeRepo) GetLive(_ context.Context, userID string) (*models.TwoFactorCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for i := len(r.codes) - 1; i >= 0; i-- {
		c := r.codes[i]
		if c.UserID == userID && c.IsLive(now) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCodeRepo) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.GetID() == id {
			c.Used = true
		}
	}
	return nil
}

func (r *fakeCodeRepo) expireAll(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.UserID == userID {
			c.ExpiresAt = time.Now().Add(-time.Minute)
		}
	}
}

func (r *fakeCodeRepo) liveCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	n := 0
	for _, c := range r.codes {
		if c.UserID == userID && c.IsLive(now) {
			n++
		}
	}
	return n
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.RememberToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: map[string]*models.RememberToken{}}
}

func (r *fakeTokenRepo) Create(_ context.Context, token *models.RememberToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *token
	r.tokens[token.GetID()] = &cp
	return nil
}

func (r *fakeTokenRepo) GetByHash(_ context.Context, hash string) (*models.RememberToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tk := range r.tokens {
		if tk.TokenHash == hash {
			cp := *tk
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeTokenRepo) TouchLastUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tk, ok := r.tokens[id]; ok {
		tk.LastUsedAt = time.Now()
	}
	return nil
}

func (r *fakeTokenRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, id)
	return nil
}

func (r *fakeTokenRepo) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, tk := range r.tokens {
		if tk.UserID == userID {
			delete(r.tokens, id)
		}
	}
	return nil
}

func (r *fakeTokenRepo) DeleteExpired(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for id, tk := range r.tokens {
		if tk.IsExpired(now) {
			delete(r.tokens, id)
		}
	}
	return nil
}

func (r *fakeTokenRepo) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*models.Session{}}
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) Save(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.GetID() == "" {
		session.ID = util.IDString()
	}
	cp := *session
	r.sessions[session.GetID()] = &cp
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for id, s := range r.sessions {
		if s.IsExpired(now) {
			delete(r.sessions, id)
		}
	}
	return nil
}
