package profile

import (
	"fmt"
	"os"
	"regexp"

	"github.com/matheus3301/chatter/internal/config"
)

const (
	DefaultName = "main"

	// NameEnv selects the profile when no flag is given.
	NameEnv = "CHATTER_PROFILE"
)

// maxSocketPath is the smallest sun_path limit among supported platforms
// (104 on darwin, 108 on linux), including the trailing NUL.
const maxSocketPath = 103

// Names start with a letter or digit so they never read as a CLI flag.
var nameRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

// Resolve determines the active profile name using precedence:
// 1. flagOverride (--profile flag)
// 2. $CHATTER_PROFILE
// 3. config.toml default_profile
// 4. "main"
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	if name := os.Getenv(NameEnv); name != "" {
		return name
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && cfg.DefaultProfile != "" {
		return cfg.DefaultProfile
	}
	return DefaultName
}

// ValidateName checks that name can be used as a profile directory and
// that the daemon socket inside it is short enough to bind.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid profile name %q: must match %s", name, nameRegexp)
	}
	if sock := SocketPath(name); len(sock) > maxSocketPath {
		return fmt.Errorf("profile %q: socket path %s is %d bytes, limit is %d; use a shorter name or %s",
			name, sock, len(sock), maxSocketPath, HomeEnv)
	}
	return nil
}
