package session

import (
	"os"

	"github.com/kingchat/kingchat/internal/config"
)

// DefaultSessionName is used when nothing else names a session.
const DefaultSessionName = "main"

// SessionEnv selects the session when no flag is given.
const SessionEnv = "KINGCHAT_SESSION"

// Resolve picks the active session: the --session flag wins, then
// $KINGCHAT_SESSION, then default_session from config.toml.
func Resolve(flag string) string {
	for _, name := range []string{flag, os.Getenv(SessionEnv)} {
		if name != "" {
			return name
		}
	}
	if cfg, err := config.Load(ConfigPath()); err == nil && cfg.DefaultSession != "" {
		return cfg.DefaultSession
	}
	return DefaultSessionName
}
