package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/romvault/internal/common"
	"github.com/dmitrijs2005/romvault/internal/logging"
	"github.com/dmitrijs2005/romvault/internal/server/metrics"
	"github.com/dmitrijs2005/romvault/internal/server/models"
)

const maxBlobNameLength = 255

// ObjectStore is the partition-scoped blob backend.
type ObjectStore interface {
	List(ctx context.Context, partition string, kind models.BlobKind) ([]models.BlobInfo, error)
	Get(ctx context.Context, partition string, kind models.BlobKind, name string) (io.ReadCloser, int64, error)
	Put(ctx context.Context, partition string, kind models.BlobKind, name string, body io.Reader, size int64) (*models.BlobInfo, error)
}

// BlobService scopes every object store call to the caller's partition.
// The partition must come from the verified access token.
type BlobService struct {
	store   ObjectStore
	metrics *metrics.Metrics
	log     logging.Logger
}

func NewBlobService(store ObjectStore, mtr *metrics.Metrics, log logging.Logger) *BlobService {
	return &BlobService{store: store, metrics: mtr, log: log.With("component", "blobs")}
}

// ValidateBlobName rejects names that could escape the kind prefix.
func ValidateBlobName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", common.ErrorBadRequest)
	case len(name) > maxBlobNameLength:
		return fmt.Errorf("%w: name too long", common.ErrorBadRequest)
	case strings.ContainsAny(name, `/\`), name == ".", name == "..":
		return fmt.Errorf("%w: invalid name", common.ErrorBadRequest)
	}
	return nil
}

func (s *BlobService) List(ctx context.Context, partition string, kind models.BlobKind) ([]models.BlobInfo, error) {
	if err := checkScope(partition, kind); err != nil {
		return nil, err
	}
	items, err := s.store.List(ctx, partition, kind)
	return items, s.finish(ctx, kind, "list", err)
}

// Get opens a blob for reading. The caller must close the returned body.
func (s *BlobService) Get(ctx context.Context, partition string, kind models.BlobKind, name string) (io.ReadCloser, int64, error) {
	if err := checkScope(partition, kind); err != nil {
		return nil, 0, err
	}
	if err := ValidateBlobName(name); err != nil {
		return nil, 0, err
	}
	body, size, err := s.store.Get(ctx, partition, kind, name)
	if err = s.finish(ctx, kind, "get", err); err != nil {
		return nil, 0, err
	}
	return body, size, nil
}

func (s *BlobService) Put(ctx context.Context, partition string, kind models.BlobKind, name string, body io.Reader, size int64) (*models.BlobInfo, error) {
	if err := checkScope(partition, kind); err != nil {
		return nil, err
	}
	if err := ValidateBlobName(name); err != nil {
		return nil, err
	}
	info, err := s.store.Put(ctx, partition, kind, name, body, size)
	if err = s.finish(ctx, kind, "put", err); err != nil {
		return nil, err
	}
	return info, nil
}

func checkScope(partition string, kind models.BlobKind) error {
	if partition == "" {
		return common.ErrorUnauthorized
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown kind", common.ErrorBadRequest)
	}
	return nil
}

// finish records the outcome and hides backend errors from callers.
func (s *BlobService) finish(ctx context.Context, kind models.BlobKind, op string, err error) error {
	result := metrics.ResultOK
	switch {
	case err == nil:
	case errors.Is(err, common.ErrorNotFound):
		result = metrics.ResultNotFound
	default:
		result = metrics.ResultError
		s.log.Error(ctx, "object store call failed", "kind", string(kind), "op", op, "error", err)
		err = common.ErrorInternal
	}
	s.metrics.StorageOps.WithLabelValues(string(kind), op, result).Inc()
	return err
}
