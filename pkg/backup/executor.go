package backup

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/luxfi/srup/pkg/encryption"
	"github.com/luxfi/srup/pkg/logger"
)

const (
	magic            = "SRUP_STATE_BACKUP"
	versionFileName  = "latest.version"
	defaultBackupDir = "./backups"
)

var ErrBadMagic = errors.New("backup: bad magic")

// Source produces incremental snapshots. Backup writes every entry with a
// version newer than since and returns the highest version written, which
// is the since for the next run.
type Source interface {
	Backup(w io.Writer, since uint64) (uint64, error)
}

// Loader applies a snapshot written by a Source.
type Loader interface {
	Load(r io.Reader) error
}

// Meta is stored in clear at the head of each backup file.
type Meta struct {
	Algo            string `json:"algo"`
	NonceB64        string `json:"nonce_b64"`
	CreatedAt       string `json:"created_at"`
	Since           uint64 `json:"since"`
	NextSince       uint64 `json:"next_since"`
	EncryptionKeyID string `json:"encryption_key_id"`
}

// Version tracks the incremental backup state.
type Version struct {
	Version   uint64 `json:"version"`
	Since     uint64 `json:"since"`
	UpdatedAt string `json:"updated_at"`
}

// Executor writes encrypted incremental backups of a store.
type Executor struct {
	NodeID string
	Source Source
	Key    []byte
	Dir    string
	now    func() time.Time
}

// NewExecutor creates dir if needed. An empty dir means ./backups.
func NewExecutor(nodeID string, src Source, key []byte, dir string) (*Executor, error) {
	if dir == "" {
		dir = defaultBackupDir
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("backup: create directory: %w", err)
	}
	return &Executor{NodeID: nodeID, Source: src, Key: key, Dir: dir, now: time.Now}, nil
}

// Execute writes one backup file with everything changed since the last
// run. It returns the empty string when there was nothing to back up.
func (e *Executor) Execute() (string, error) {
	info, err := e.LoadVersionInfo()
	if err != nil {
		return "", fmt.Errorf("backup: load version info: %w", err)
	}

	var plain bytes.Buffer
	last, err := e.Source.Backup(&plain, info.Since)
	if err != nil {
		return "", err
	}
	if plain.Len() == 0 || last == info.Since {
		logger.Debug("No changes since last backup, skipping", "since", info.Since)
		return "", nil
	}

	ct, nonce, err := encryption.EncryptAESGCM(plain.Bytes(), e.Key)
	if err != nil {
		return "", err
	}

	now := e.now()
	version := info.Version + 1
	meta := Meta{
		Algo:            algoName(e.Key),
		NonceB64:        base64.StdEncoding.EncodeToString(nonce),
		CreatedAt:       now.UTC().Format(time.RFC3339),
		Since:           info.Since,
		NextSince:       last,
		EncryptionKeyID: encryption.KeyID(e.Key),
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	if len(metaJSON) > math.MaxUint32 {
		return "", fmt.Errorf("backup: metadata too large")
	}

	// Zero padded version keeps lexical order equal to apply order.
	filename := fmt.Sprintf("backup-%s-%010d-%s.enc", e.NodeID, version, now.UTC().Format("2006-01-02_15-04-05"))
	outPath := filepath.Join(e.Dir, filename)

	var out bytes.Buffer
	out.WriteString(magic)
	out.Write(binary.BigEndian.AppendUint32(nil, uint32(len(metaJSON))))
	out.Write(metaJSON)
	out.Write(ct)
	if err := os.WriteFile(outPath, out.Bytes(), 0600); err != nil {
		return "", err
	}

	if err := e.SaveVersionInfo(version, meta.NextSince); err != nil {
		logger.Warn("Failed to save backup version", "err", err)
	}
	logger.Info("Encrypted backup written", "file", filename, "version", version)
	return outPath, nil
}

func (e *Executor) SaveVersionInfo(counter, since uint64) error {
	info := Version{
		Version:   counter,
		Since:     since,
		UpdatedAt: e.now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(e.Dir, versionFileName), data, 0600)
}

func (e *Executor) LoadVersionInfo() (Version, error) {
	var info Version
	data, err := os.ReadFile(filepath.Join(e.Dir, versionFileName))
	if errors.Is(err, os.ErrNotExist) {
		return Version{}, nil
	}
	if err != nil {
		return info, err
	}
	err = json.Unmarshal(data, &info)
	return info, err
}

// SortedBackups lists backup files in apply order.
func (e *Executor) SortedBackups() []string {
	files, _ := filepath.Glob(filepath.Join(e.Dir, "backup-*.enc"))
	sort.Strings(files)
	return files
}

// RestoreAll decrypts every backup in order and loads it into dst.
func (e *Executor) RestoreAll(dst Loader) error {
	for _, file := range e.SortedBackups() {
		logger.Info("Restoring backup", "file", file)
		if err := e.restore(dst, file); err != nil {
			return fmt.Errorf("backup: restore %s: %w", filepath.Base(file), err)
		}
	}
	return nil
}

func (e *Executor) restore(dst Loader, path string) error {
	meta, ct, err := readBackup(path)
	if err != nil {
		return err
	}
	if meta.EncryptionKeyID != encryption.KeyID(e.Key) {
		return fmt.Errorf("backup: encrypted under key %s", meta.EncryptionKeyID)
	}
	nonce, err := base64.StdEncoding.DecodeString(meta.NonceB64)
	if err != nil {
		return err
	}
	plain, err := encryption.DecryptAESGCM(ct, e.Key, nonce)
	if err != nil {
		return err
	}
	return dst.Load(bytes.NewReader(plain))
}

// readBackup splits a backup file into its clear header and ciphertext.
func readBackup(path string) (Meta, []byte, error) {
	var meta Meta
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, nil, err
	}
	if len(data) < len(magic)+4 || string(data[:len(magic)]) != magic {
		return meta, nil, ErrBadMagic
	}
	data = data[len(magic):]
	metaLen := binary.BigEndian.Uint32(data)
	data = data[4:]
	if uint64(len(data)) < uint64(metaLen) {
		return meta, nil, io.ErrUnexpectedEOF
	}
	if err := json.Unmarshal(data[:metaLen], &meta); err != nil {
		return meta, nil, err
	}
	return meta, data[metaLen:], nil
}

func algoName(key []byte) string {
	return fmt.Sprintf("AES-%d-GCM", len(key)*8)
}
