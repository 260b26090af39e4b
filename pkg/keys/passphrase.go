package keys

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"golang.org/x/term"
)

// DefaultPassphraseEnv is read by the env provider when no variable is
// configured.
const DefaultPassphraseEnv = "SRUP_KEY_PASSPHRASE"

// PassphraseProvider returns the passphrase that unlocks the key identified
// by keyID. Implementations must be safe for concurrent use.
type PassphraseProvider interface {
	GetPassphrase(ctx context.Context, keyID string) (string, error)
}

// EnvProvider reads the passphrase from an environment variable.
type EnvProvider struct {
	EnvVar string
}

func (p *EnvProvider) GetPassphrase(_ context.Context, _ string) (string, error) {
	envVar := p.EnvVar
	if envVar == "" {
		envVar = DefaultPassphraseEnv
	}
	v := os.Getenv(envVar)
	if v == "" {
		return "", fmt.Errorf("keys/env: environment variable %s is not set", envVar)
	}
	return v, nil
}

// FileProvider reads the passphrase from a file, dropping trailing newlines.
type FileProvider struct {
	Path string
}

func (p *FileProvider) GetPassphrase(_ context.Context, keyID string) (string, error) {
	if p.Path == "" {
		return "", fmt.Errorf("keys/file: no path configured for %s", keyID)
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return "", fmt.Errorf("keys/file: read %s: %w", p.Path, err)
	}
	pass := strings.TrimRight(string(data), "\n\r")
	if pass == "" {
		return "", fmt.Errorf("keys/file: %s is empty", p.Path)
	}
	return pass, nil
}

// StaticProvider returns a fixed passphrase.
type StaticProvider struct {
	Passphrase string
}

func (p *StaticProvider) GetPassphrase(_ context.Context, _ string) (string, error) {
	if p.Passphrase == "" {
		return "", fmt.Errorf("keys/static: empty passphrase")
	}
	return p.Passphrase, nil
}

// TerminalProvider prompts on the controlling terminal.
type TerminalProvider struct {
	Prompt string
}

func (p *TerminalProvider) GetPassphrase(_ context.Context, keyID string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("keys/prompt: stdin is not a terminal")
	}
	prompt := p.Prompt
	if prompt == "" {
		prompt = fmt.Sprintf("Enter passphrase for %s: ", keyID)
	}
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("keys/prompt: %w", err)
	}
	if len(pass) == 0 {
		return "", fmt.Errorf("keys/prompt: empty passphrase")
	}
	return string(pass), nil
}

// ProviderConfig selects and configures a PassphraseProvider.
type ProviderConfig struct {
	Type   string `mapstructure:"type"`
	EnvVar string `mapstructure:"env_var"`
	Path   string `mapstructure:"path"`
	Value  string `mapstructure:"value"`
	Prompt string `mapstructure:"prompt"`
}

// NewPassphraseProvider builds a provider from a settings map such as the
// keys.passphrase config section. Supported types: env (default), file,
// static, prompt.
func NewPassphraseProvider(settings map[string]string) (PassphraseProvider, error) {
	var cfg ProviderConfig
	if err := mapstructure.Decode(settings, &cfg); err != nil {
		return nil, fmt.Errorf("keys: decode passphrase settings: %w", err)
	}

	switch strings.TrimSpace(strings.ToLower(cfg.Type)) {
	case "", "env":
		return &EnvProvider{EnvVar: cfg.EnvVar}, nil
	case "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("keys: file passphrase provider requires path")
		}
		return &FileProvider{Path: cfg.Path}, nil
	case "static":
		return &StaticProvider{Passphrase: cfg.Value}, nil
	case "prompt":
		return &TerminalProvider{Prompt: cfg.Prompt}, nil
	default:
		return nil, fmt.Errorf("keys: unknown passphrase provider %q", cfg.Type)
	}
}
