package session

import (
	"encoding/json"
	"fmt"
	"os"
)

// TokenFile persists the opaque credential token across restarts. It is a
// single durable key: last writer wins, no locking needed.
type TokenFile struct {
	path string
}

// NewTokenFile returns a TokenFile stored at path.
func NewTokenFile(path string) *TokenFile {
	return &TokenFile{path: path}
}

type tokenRecord struct {
	Token string `json:"token"`
}

// Load reads the persisted token. A missing file is not an error; it just
// means there is no stored credential.
func (t *TokenFile) Load() (string, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	var rec tokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("parse token file: %w", err)
	}
	return rec.Token, nil
}

// Save writes the token to disk, replacing any previous value.
func (t *TokenFile) Save(token string) error {
	data, err := json.Marshal(tokenRecord{Token: token})
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}
	if err := os.WriteFile(t.path, data, 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// Clear removes the persisted token. Clearing an already-absent file is a
// no-op.
func (t *TokenFile) Clear() error {
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
