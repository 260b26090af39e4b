// Package config loads srupctl settings from config.yaml and SRUP_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/luxfi/srup/pkg/event"
)

const (
	EnvPrefix      = "SRUP"
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DefaultNATSURL             = "nats://127.0.0.1:4222"
	DefaultSubject             = event.CommandSubject
	DefaultResultSubject       = event.ResultSubject
	DefaultBackupPeriodSeconds = 300
)

// Config is the full srupctl configuration.
type Config struct {
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	// SenderID is this node's identity, decimal or 0x-prefixed hex.
	SenderID string       `mapstructure:"sender_id"`
	Keys     KeysConfig   `mapstructure:"keys"`
	NATS     NATSConfig   `mapstructure:"nats"`
	Store    StoreConfig  `mapstructure:"store"`
	Backup   BackupConfig `mapstructure:"backup"`
}

type KeysConfig struct {
	PrivateKey string `mapstructure:"private_key"`
	PublicKey  string `mapstructure:"public_key"`
	// Senders maps a sender id to the public key file used to verify it.
	Senders map[string]string `mapstructure:"senders"`
	// Passphrase selects how encrypted key files are unlocked.
	Passphrase map[string]string `mapstructure:"passphrase"`
}

type NATSConfig struct {
	URL             string `mapstructure:"url"`
	Subject         string `mapstructure:"subject"`
	ResultSubject   string `mapstructure:"result_subject"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	ConnectAttempts uint   `mapstructure:"connect_attempts"`
}

type StoreConfig struct {
	Path          string `mapstructure:"path"`
	EncryptionKey string `mapstructure:"encryption_key"`
	InMemory      bool   `mapstructure:"in_memory"`
}

type BackupConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Dir           string `mapstructure:"dir"`
	EncryptionKey string `mapstructure:"encryption_key"`
	PeriodSeconds int    `mapstructure:"period_seconds"`
	S3Endpoint    string `mapstructure:"s3_endpoint"`
	S3Bucket      string `mapstructure:"s3_bucket"`
	S3AccessKey   string `mapstructure:"s3_access_key"`
	S3SecretKey   string `mapstructure:"s3_secret_key"`
	S3Region      string `mapstructure:"s3_region"`
	S3UseSSL      bool   `mapstructure:"s3_use_ssl"`
}

func setDefaults() {
	viper.SetDefault("environment", EnvDevelopment)
	viper.SetDefault("debug", false)
	viper.SetDefault("sender_id", "")
	viper.SetDefault("keys.private_key", "")
	viper.SetDefault("keys.public_key", "")
	viper.SetDefault("keys.passphrase", map[string]string{"type": "env"})
	viper.SetDefault("nats.url", DefaultNATSURL)
	viper.SetDefault("nats.subject", DefaultSubject)
	viper.SetDefault("nats.result_subject", DefaultResultSubject)
	viper.SetDefault("nats.username", "")
	viper.SetDefault("nats.password", "")
	viper.SetDefault("nats.connect_attempts", 5)
	viper.SetDefault("store.path", filepath.Join(".", "db"))
	viper.SetDefault("store.encryption_key", "")
	viper.SetDefault("store.in_memory", false)
	viper.SetDefault("backup.enabled", false)
	viper.SetDefault("backup.dir", filepath.Join(".", "backups"))
	viper.SetDefault("backup.encryption_key", "")
	viper.SetDefault("backup.period_seconds", DefaultBackupPeriodSeconds)
	viper.SetDefault("backup.s3_endpoint", "")
	viper.SetDefault("backup.s3_bucket", "srup-backups")
	viper.SetDefault("backup.s3_access_key", "")
	viper.SetDefault("backup.s3_secret_key", "")
	viper.SetDefault("backup.s3_region", "")
	viper.SetDefault("backup.s3_use_ssl", true)
}

// InitViperConfig wires defaults, environment overrides and, if present,
// config.yaml from the working directory or $HOME/.srup.
func InitViperConfig() {
	setDefaults()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".srup"))
	}
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "config: failed to read %s: %v\n", viper.ConfigFileUsed(), err)
		}
	}
}

// Load decodes the current viper settings into a Config and validates it.
func Load() (Config, error) {
	settings := make(map[string]interface{})
	for _, key := range viper.AllKeys() {
		setNested(settings, strings.Split(key, "."), viper.Get(key))
	}

	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(settings); err != nil {
		return Config{}, fmt.Errorf("config: decode failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setNested rebuilds the nested map from flattened viper keys so that
// environment overrides are seen by the decoder.
func setNested(m map[string]interface{}, path []string, v interface{}) {
	for _, p := range path[:len(path)-1] {
		next, ok := m[p].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			m[p] = next
		}
		m = next
	}
	m[path[len(path)-1]] = v
}

// Validate checks that the configuration is coherent.
func (c Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("invalid environment %q: must be %q or %q", c.Environment, EnvDevelopment, EnvProduction)
	}
	if c.SenderID != "" {
		if _, err := ParseID(c.SenderID); err != nil {
			return fmt.Errorf("invalid sender_id: %w", err)
		}
	}
	for id := range c.Keys.Senders {
		if _, err := ParseID(id); err != nil {
			return fmt.Errorf("invalid keys.senders entry %q: %w", id, err)
		}
	}
	if c.NATS.Subject == "" {
		return fmt.Errorf("invalid nats.subject: must not be empty")
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("invalid store.path: must not be empty unless store.in_memory is set")
	}
	if c.Backup.Enabled {
		if c.Store.InMemory {
			return fmt.Errorf("invalid config: backup.enabled requires a persistent store")
		}
		if c.Backup.Dir == "" {
			return fmt.Errorf("invalid backup.dir: required when backups are enabled")
		}
		switch len(c.Backup.EncryptionKey) {
		case 16, 24, 32:
		default:
			return fmt.Errorf("invalid backup.encryption_key: must be 16, 24 or 32 bytes")
		}
		if c.Backup.PeriodSeconds <= 0 {
			return fmt.Errorf("invalid backup.period_seconds: must be positive")
		}
	}
	if c.Environment == EnvProduction && c.Store.EncryptionKey == "" && !c.Store.InMemory {
		return fmt.Errorf("invalid store.encryption_key: required in production")
	}
	switch len(c.Store.EncryptionKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("invalid store.encryption_key: must be 16, 24 or 32 bytes")
	}
	return nil
}

// ParseID parses a sender or sequence id written in decimal or with a 0x,
// 0o or 0b prefix. Values that do not fit in 64 bits are rejected.
func ParseID(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}
