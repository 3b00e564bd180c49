package stores

import (
	"context"
	"time"

	"github.com/cppla/linkvault/utils"
)

// Sweeper periodically purges uploads whose validity has lapsed, removing the
// stored file bytes and then the database row. Failures are logged and skipped
// per item, never fatal to the sweep; running twice over the same set is a
// no-op the second time.
type Sweeper struct {
	uploads  *UploadStore
	files    *FileStore
	interval time.Duration
}

// NewSweeper builds a sweeper over the given stores.
func NewSweeper(uploads *UploadStore, files *FileStore, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{uploads: uploads, files: files, interval: interval}
}

// Start launches the sweep loop in a background goroutine. It runs until ctx is
// cancelled and holds no locks against concurrent request traffic.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-ctx.Done():
				utils.Sugar.Info("sweeper stopping")
				return
			}
		}
	}()
}

// Sweep purges every currently lapsed upload and returns how many rows were
// removed.
func (s *Sweeper) Sweep() int {
	expired, err := s.uploads.FindExpired()
	if err != nil {
		utils.Sugar.Errorf("sweep query failed: %v", err)
		return 0
	}
	if len(expired) == 0 {
		return 0
	}

	purged := 0
	for _, u := range expired {
		// File bytes are owned exclusively by the record referencing them, so
		// its removal authorizes theirs. Tolerate already-missing files.
		if u.StoredFilename != "" {
			if err := s.files.Remove(u.StoredFilename); err != nil {
				utils.Sugar.Errorf("sweep: remove file for upload %d failed: %v", u.ID, err)
			}
		}
		if err := s.uploads.HardDelete(u.ID); err != nil {
			utils.Sugar.Errorf("sweep: delete row for upload %d failed: %v", u.ID, err)
			continue
		}
		purged++
	}

	utils.Sugar.Infof("sweep purged %d expired upload(s)", purged)
	return purged
}
