// Package mediacache keeps local copies of remote media (audio, documents,
// images) so each URL is downloaded at most once.
//
// Concurrent fetches of one URL share a single download. A file is written
// under a temporary name and renamed into place before its index entry is
// recorded, so a visible entry always points at a complete file. Entries are
// never evicted.
package mediacache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/lingopost/internal/client/models"
	"github.com/dmitrijs2005/lingopost/internal/client/repositories/media"
	"github.com/dmitrijs2005/lingopost/internal/common"
	"github.com/dmitrijs2005/lingopost/internal/filex"
	"github.com/dmitrijs2005/lingopost/internal/logging"
	"github.com/dmitrijs2005/lingopost/internal/netx"
	"golang.org/x/sync/singleflight"
)

// Downloader fetches remote bytes. *client.HTTPClient satisfies it.
type Downloader interface {
	ResolveURL(p string) string
	Download(ctx context.Context, rawURL string, w io.Writer, progress netx.ProgressFunc) (int64, error)
}

type Cache struct {
	dir   string
	repo  media.Repository
	dl    Downloader
	log   logging.Logger
	now   func() time.Time
	group singleflight.Group
}

func New(dir string, repo media.Repository, dl Downloader, log logging.Logger) (*Cache, error) {
	dir, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	return &Cache{dir: dir, repo: repo, dl: dl, log: log, now: time.Now}, nil
}

// Fetch returns the local path of remoteURL, downloading it on first use.
// Only the caller that starts a download receives progress updates; callers
// joining an in-flight download just wait for its result.
func (c *Cache) Fetch(ctx context.Context, remoteURL string, progress netx.ProgressFunc) (string, error) {
	key := c.dl.ResolveURL(remoteURL)

	if p, ok := c.lookup(ctx, key); ok {
		return p, nil
	}

	// the download outlives a caller that gives up; others may be waiting on it
	dlCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if p, ok := c.lookup(dlCtx, key); ok {
			return p, nil
		}
		return c.download(dlCtx, key, progress)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Lookup returns the local path of an already cached URL.
func (c *Cache) Lookup(ctx context.Context, remoteURL string) (string, bool) {
	return c.lookup(ctx, c.dl.ResolveURL(remoteURL))
}

// List returns every cached entry, newest first.
func (c *Cache) List(ctx context.Context) ([]*models.CachedMediaEntry, error) {
	entries, err := c.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	return entries, nil
}

func (c *Cache) lookup(ctx context.Context, key string) (string, bool) {
	e, err := c.repo.Get(ctx, key)
	if errors.Is(err, media.ErrNotFound) {
		return "", false
	}
	if err != nil {
		c.log.Warn(ctx, "media index unreadable, treating as miss", "url", key, "err", err)
		return "", false
	}
	if !filex.Exists(e.LocalPath) {
		// removed outside the app; forget it so it is fetched again
		c.log.Warn(ctx, "cached media missing on disk", "url", key, "path", e.LocalPath)
		if err := c.repo.Delete(ctx, key); err != nil {
			c.log.Warn(ctx, "drop stale media entry", "url", key, "err", err)
		}
		return "", false
	}
	return e.LocalPath, true
}

func (c *Cache) download(ctx context.Context, key string, progress netx.ProgressFunc) (string, error) {
	final := filepath.Join(c.dir, LocalName(key))

	tmp, err := os.CreateTemp(c.dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrDownloadFailed, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	start := c.now()
	n, err := c.dl.Download(ctx, key, tmp, progress)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		c.log.Warn(ctx, "media download failed", "url", key, "err", err)
		return "", fmt.Errorf("%w: %w", common.ErrDownloadFailed, err)
	}

	if err := os.Rename(tmpName, final); err != nil {
		cleanup()
		return "", fmt.Errorf("%w: %w", common.ErrDownloadFailed, err)
	}

	entry := &models.CachedMediaEntry{
		RemoteURL: key,
		LocalPath: final,
		SizeBytes: n,
		FetchedAt: c.now().UTC(),
	}
	if err := c.repo.Put(ctx, entry); err != nil {
		_ = os.Remove(final)
		return "", fmt.Errorf("%w: record media: %w", common.ErrDownloadFailed, err)
	}

	c.log.Info(ctx, "media cached", "url", key, "path", final, "bytes", n, "elapsed", c.now().Sub(start))
	return final, nil
}

// LocalName derives the cache filename of a URL: a short hash of the full
// URL followed by the remote file name, so equal names from different
// locations do not collide.
func LocalName(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	prefix := hex.EncodeToString(sum[:4])

	base := ""
	if u, err := url.Parse(rawURL); err == nil {
		base = filex.SafeName(path.Base(u.Path))
	}
	if base == "" || base == "_" {
		return prefix
	}
	return prefix + "-" + base
}
