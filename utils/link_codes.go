package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
	"time"
)

const (
	linkCodeLength = 6
	linkCodeTTL    = 10 * time.Minute
	linkCodeChars  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

type linkCodeEntry struct {
	code      string
	expiresAt time.Time
}

// LinkCodeRegistry issues single-use, short-lived codes that bind a Telegram
// chat to an account. The user→code and code→user maps are kept mutually
// consistent: every mutation touches both under the same lock.
type LinkCodeRegistry struct {
	mu     sync.Mutex
	byUser map[string]linkCodeEntry
	byCode map[string]string
	now    func() time.Time
}

// NewLinkCodeRegistry creates an empty registry.
func NewLinkCodeRegistry() *LinkCodeRegistry {
	return &LinkCodeRegistry{
		byUser: map[string]linkCodeEntry{},
		byCode: map[string]string{},
		now:    time.Now,
	}
}

// Generate creates a fresh code for the user, invalidating any prior
// unconsumed code, and returns it. Codes are 6 uppercase base-36 characters
// valid for 10 minutes.
func (r *LinkCodeRegistry) Generate(userID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prior, ok := r.byUser[userID]; ok {
		delete(r.byCode, prior.code)
	}

	code := randomCode()
	// The code space is 36^6 so collisions are rare, but the check costs a
	// map lookup: regenerate a few times before overwriting.
	for i := 0; i < 3; i++ {
		if _, taken := r.byCode[code]; !taken {
			break
		}
		code = randomCode()
	}
	if priorOwner, taken := r.byCode[code]; taken {
		delete(r.byUser, priorOwner)
	}

	r.byUser[userID] = linkCodeEntry{code: code, expiresAt: r.now().Add(linkCodeTTL)}
	r.byCode[code] = userID
	return code
}

// Validate looks up a code case-insensitively and consumes it. It returns
// the owning user ID, or false when the code is unknown or expired. Expired
// entries are removed on the way out.
func (r *LinkCodeRegistry) Validate(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))

	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byCode[code]
	if !ok {
		return "", false
	}

	entry := r.byUser[userID]
	delete(r.byCode, code)
	delete(r.byUser, userID)

	if r.now().After(entry.expiresAt) {
		return "", false
	}
	return userID, true
}

// PurgeExpired drops every expired unconsumed code. Run daily by the
// scheduler's cleanup job.
func (r *LinkCodeRegistry) PurgeExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for userID, entry := range r.byUser {
		if now.After(entry.expiresAt) {
			delete(r.byCode, entry.code)
			delete(r.byUser, userID)
			removed++
		}
	}
	return removed
}

func randomCode() string {
	buf := make([]byte, linkCodeLength)
	for i := range buf {
		v, err := rand.Int(rand.Reader, big.NewInt(int64(len(linkCodeChars))))
		if err != nil {
			// fallback to time based index if crypto fails
			v = big.NewInt(time.Now().UnixNano() % int64(len(linkCodeChars)))
		}
		buf[i] = linkCodeChars[v.Int64()]
	}
	return string(buf)
}
