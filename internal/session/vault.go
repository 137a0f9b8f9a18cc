package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/kingchat/kingchat/internal/chat"
)

// state is the on-disk layout. The keys match the storage keys used by every
// KingChat client so a token can be pasted between them.
type state struct {
	Token string `toml:"kingchat_token"`
	User  string `toml:"kingchat_user"`
}

// Credentials is the persisted authentication of a session.
type Credentials struct {
	Token string
	User  chat.User
}

// Authenticated reports whether a token is present. This is the only check
// performed at startup; the server validates the token on use.
func (c Credentials) Authenticated() bool {
	return c.Token != ""
}

// Vault persists the bearer token and the current user of a session.
type Vault struct {
	mu   sync.Mutex
	path string
}

// NewVault returns a vault stored at path.
func NewVault(path string) *Vault {
	return &Vault{path: path}
}

// Load returns the stored credentials. A missing file yields empty credentials.
func (v *Vault) Load() (Credentials, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var st state
	if _, err := toml.DecodeFile(v.path, &st); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, nil
		}
		return Credentials{}, fmt.Errorf("read session state: %w", err)
	}
	creds := Credentials{Token: st.Token}
	if st.User != "" {
		if err := json.Unmarshal([]byte(st.User), &creds.User); err != nil {
			return Credentials{}, fmt.Errorf("decode stored user: %w", err)
		}
	}
	return creds, nil
}

// Save stores token and user, replacing any previous credentials.
func (v *Vault) Save(creds Credentials) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	user, err := json.Marshal(creds.User)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(v.path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(v.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(state{Token: creds.Token, User: string(user)})
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Clear removes the stored credentials.
func (v *Vault) Clear() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := os.Remove(v.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
