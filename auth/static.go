package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// StaticUser is one entry of the in-process credential table.
type StaticUser struct {
	PasswordHash string
	Role         Role
}

// StaticVerifier checks credentials against a fixed table loaded at startup.
type StaticVerifier struct {
	users map[string]StaticUser
}

// NewStaticVerifier copies users so later mutation by the caller has no effect.
func NewStaticVerifier(users map[string]StaticUser) *StaticVerifier {
	cp := make(map[string]StaticUser, len(users))
	for name, u := range users {
		cp[name] = u
	}
	return &StaticVerifier{users: cp}
}

// Verify implements Verifier. Usernames match exactly.
func (v *StaticVerifier) Verify(_ context.Context, username, password string) (Role, error) {
	user, ok := v.users[username]
	if !ok {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return user.Role, nil
}

// Len reports how many accounts the table holds.
func (v *StaticVerifier) Len() int {
	return len(v.users)
}

// ParseStaticUsers reads "username:role:bcrypthash" entries separated by ';'.
func ParseStaticUsers(spec string) (map[string]StaticUser, error) {
	users := make(map[string]StaticUser)
	for _, entry := range strings.Split(spec, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("auth: malformed staff user entry %q", entry)
		}
		username := strings.TrimSpace(parts[0])
		role := Role(strings.TrimSpace(parts[1]))
		hash := strings.TrimSpace(parts[2])
		if username == "" || hash == "" {
			return nil, fmt.Errorf("auth: malformed staff user entry %q", entry)
		}
		if !role.IsValid() {
			return nil, fmt.Errorf("auth: invalid role %q for %s", role, username)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("auth: password for %s is not a bcrypt hash: %w", username, err)
		}
		if _, dup := users[username]; dup {
			return nil, fmt.Errorf("auth: duplicate staff user %q", username)
		}
		users[username] = StaticUser{PasswordHash: hash, Role: role}
	}
	return users, nil
}
