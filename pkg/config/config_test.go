package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/srup/pkg/event"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)
	chdir(t, t.TempDir())
	InitViperConfig()

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, DefaultNATSURL, cfg.NATS.URL)
	assert.Equal(t, event.CommandSubject, cfg.NATS.Subject)
	assert.Equal(t, event.ResultSubject, cfg.NATS.ResultSubject)
	assert.Equal(t, uint(5), cfg.NATS.ConnectAttempts)
	assert.Equal(t, "env", cfg.Keys.Passphrase["type"])
	assert.Equal(t, DefaultBackupPeriodSeconds, cfg.Backup.PeriodSeconds)
}

func TestLoadFromFileAndEnv(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	chdir(t, dir)

	yaml := `
environment: development
sender_id: "0x5F5F5F5F5F5F5F5F"
keys:
  private_key: /etc/srup/device.pem
  senders:
    "0x1234": /etc/srup/c2.pub
nats:
  subject: devices.activate
store:
  in_memory: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0600))
	t.Setenv("SRUP_NATS_URL", "nats://broker:4222")

	InitViperConfig()
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0x5F5F5F5F5F5F5F5F", cfg.SenderID)
	assert.Equal(t, "/etc/srup/device.pem", cfg.Keys.PrivateKey)
	assert.Equal(t, "/etc/srup/c2.pub", cfg.Keys.Senders["0x1234"])
	assert.Equal(t, "devices.activate", cfg.NATS.Subject)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.True(t, cfg.Store.InMemory)
}

func TestValidate(t *testing.T) {
	base := Config{
		Environment: EnvDevelopment,
		NATS:        NATSConfig{Subject: DefaultSubject},
		Store:       StoreConfig{Path: "db"},
	}
	require.NoError(t, base.Validate())

	t.Run("unknown environment", func(t *testing.T) {
		c := base
		c.Environment = "staging"
		assert.Error(t, c.Validate())
	})

	t.Run("sender id overflow", func(t *testing.T) {
		c := base
		c.SenderID = "0x10000000000000000"
		assert.Error(t, c.Validate())
	})

	t.Run("production needs encryption key", func(t *testing.T) {
		c := base
		c.Environment = EnvProduction
		assert.Error(t, c.Validate())
		c.Store.EncryptionKey = "0123456789abcdef0123456789abcdef"
		assert.NoError(t, c.Validate())
	})

	t.Run("backup needs persistent store", func(t *testing.T) {
		c := base
		c.Store.InMemory = true
		c.Backup = BackupConfig{Enabled: true, Dir: "backups", EncryptionKey: "0123456789abcdef", PeriodSeconds: 60}
		assert.Error(t, c.Validate())
		c.Store.InMemory = false
		assert.NoError(t, c.Validate())
	})

	t.Run("backup needs a valid key", func(t *testing.T) {
		c := base
		c.Backup = BackupConfig{Enabled: true, Dir: "backups", EncryptionKey: "short", PeriodSeconds: 60}
		assert.Error(t, c.Validate())
	})

	t.Run("store key length", func(t *testing.T) {
		c := base
		c.Store.EncryptionKey = "too-short"
		assert.Error(t, c.Validate())
	})
}

func TestParseID(t *testing.T) {
	v, err := ParseID("0xFFFFFFFFFFFFFFFF")
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), v)

	v, err = ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)

	_, err = ParseID("-1")
	assert.Error(t, err)
	_, err = ParseID("18446744073709551616")
	assert.Error(t, err)
}
