package backup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/srup/pkg/logger"
)

// Manager runs the executor on a fixed period and ships each new file to
// the uploader, if there is one.
type Manager struct {
	executor *Executor
	uploader *Uploader
	period   time.Duration

	// mu serialises runs from the loop and from callers.
	mu       sync.Mutex
	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewManager builds a manager. s3Cfg may be nil for local-only backups.
func NewManager(ctx context.Context, executor *Executor, period time.Duration, s3Cfg *S3Config) (*Manager, error) {
	if period <= 0 {
		return nil, errors.New("backup: period must be positive")
	}
	m := &Manager{executor: executor, period: period, done: make(chan struct{})}
	if s3Cfg != nil {
		up, err := NewUploader(ctx, *s3Cfg, executor.NodeID)
		if err != nil {
			return nil, err
		}
		m.uploader = up
	}
	return m, nil
}

// Start runs backups in the background until Stop or ctx is done.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.period)
		defer ticker.Stop()
		for {
			select {
			case <-m.done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.RunBackup(ctx); err != nil {
					logger.Error("Backup failed", err)
				}
			}
		}
	}()
}

// Stop ends the loop, waits for a running backup, then takes a final one so
// state accepted since the last tick is not lost. Safe to call twice.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
		if err := m.RunBackup(context.Background()); err != nil {
			logger.Error("Final backup failed", err)
		}
	})
}

// RunBackup takes one backup now. Upload errors are logged; the local file
// is already durable and the next run does not depend on the upload.
func (m *Manager) RunBackup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path, err := m.executor.Execute()
	if err != nil {
		return fmt.Errorf("backup: local: %w", err)
	}
	if path == "" || m.uploader == nil {
		return nil
	}
	info, err := m.executor.LoadVersionInfo()
	if err != nil {
		logger.Warn("Cannot read backup version for upload", "err", err)
	}
	if err := m.uploader.Upload(ctx, path, info.Version); err != nil {
		logger.Error("Backup upload failed", err, "file", path)
	}
	return nil
}
