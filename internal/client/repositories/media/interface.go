// Package media persists the index of the local media cache: which remote
// URL has been downloaded to which local file.
package media

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/lingopost/internal/client/models"
)

var ErrNotFound = errors.New("media entry not found")

type Repository interface {
	Get(ctx context.Context, remoteURL string) (*models.CachedMediaEntry, error)
	Put(ctx context.Context, e *models.CachedMediaEntry) error
	Delete(ctx context.Context, remoteURL string) error
	List(ctx context.Context) ([]*models.CachedMediaEntry, error)
}
