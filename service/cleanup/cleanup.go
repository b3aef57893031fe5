package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chaters/logger"
	"chaters/module/upload"
	"chaters/store"
)

const (
	interval = time.Hour

	// Uploads younger than this survive the orphan sweep: the message
	// row referencing them may not be committed yet.
	orphanGrace = time.Hour
)

// Job prunes expired messages (per-chat retention), expired sessions,
// and upload files no message references anymore.
type Job struct {
	store *store.Store
	blobs *upload.Blobs
}

func NewJob(st *store.Store, blobs *upload.Blobs) *Job {
	return &Job{store: st, blobs: blobs}
}

// Run executes one sweep immediately, then once per hour until ctx is
// done.
func (j *Job) Run(ctx context.Context) {
	j.sweep(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Job) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	j.sweepMessages(ctx)
	j.sweepSessions(ctx)
	j.sweepOrphans(ctx)
}

func (j *Job) sweepMessages(ctx context.Context) {
	chats, err := j.store.ChatsWithRetention(ctx)
	if err != nil {
		logger.Errorf("cleanup: list retention chats: %v", err)
		return
	}
	for _, c := range chats {
		fileURLs, err := j.store.DeleteExpiredMessages(ctx, c.ID, c.MessageTTL)
		if err != nil {
			logger.Errorf("cleanup: expire messages in %s: %v", c.ChatKey, err)
			continue
		}
		for _, url := range fileURLs {
			if err := j.blobs.Remove(url); err != nil {
				logger.Warnf("cleanup: remove blob %s: %v", url, err)
			}
		}
		if len(fileURLs) > 0 {
			logger.Infof("cleanup: %s dropped %d attachments past %dd retention",
				c.ChatKey, len(fileURLs), c.MessageTTL)
		}
	}
}

func (j *Job) sweepSessions(ctx context.Context) {
	n, err := j.store.DeleteExpiredSessions(ctx)
	if err != nil {
		logger.Errorf("cleanup: expire sessions: %v", err)
		return
	}
	if n > 0 {
		logger.Infof("cleanup: removed %d expired sessions", n)
	}
}

func (j *Job) sweepOrphans(ctx context.Context) {
	urls, err := j.blobs.List()
	if err != nil {
		logger.Errorf("cleanup: list blobs: %v", err)
		return
	}
	for _, url := range urls {
		name := strings.TrimPrefix(url, "/uploads/")
		info, err := os.Stat(filepath.Join(j.blobs.Dir(), name))
		if err != nil || time.Since(info.ModTime()) < orphanGrace {
			continue
		}
		inUse, err := j.store.FileURLInUse(ctx, url)
		if err != nil {
			logger.Errorf("cleanup: check blob %s: %v", url, err)
			continue
		}
		if inUse {
			continue
		}
		if err := j.blobs.Remove(url); err != nil {
			logger.Warnf("cleanup: remove orphan %s: %v", url, err)
			continue
		}
		logger.Infof("cleanup: removed orphan upload %s", url)
	}
}
