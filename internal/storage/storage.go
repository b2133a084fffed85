// Package storage keeps report artifacts in Azure Blob Storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
)

var (
	ErrEmptyKey   = errors.New("storage key is empty")
	ErrInvalidKey = errors.New("storage key is invalid")
)

// API is the subset of *azblob.Client the store uses.
type API interface {
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
	UploadStream(ctx context.Context, containerName, blobName string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error)
	DeleteBlob(ctx context.Context, containerName, blobName string, o *azblob.DeleteBlobOptions) (azblob.DeleteBlobResponse, error)
}

type Store struct {
	client    API
	container string
	logger    *slog.Logger
}

// New creates a store from a connection string. No request is made until
// the first call.
func New(cfg common.StorageConfig, logger *slog.Logger) (*Store, error) {
	if cfg.ConnectionString == "" || cfg.Container == "" {
		return nil, common.NewAppError(common.CodeConfig, "AZURE_STORAGE_CONNECTION_STRING and AZURE_STORAGE_CONTAINER are required", common.ErrInvalidInput)
	}
	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return NewWithClient(client, cfg.Container, logger), nil
}

func NewWithClient(client API, container string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, container: container, logger: logger.With("system", "storage")}
}

// EnsureContainer creates the container unless it already exists.
func (s *Store) EnsureContainer(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		s.logger.Error("storage.container.failed", "container", s.container, "error", err)
		return fmt.Errorf("create container %s: %w", s.container, err)
	}
	s.logger.Debug("storage.container.ready", "container", s.container)
	return nil
}

func (s *Store) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	opts := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	}
	if _, err := s.client.UploadStream(ctx, s.container, key, reader, opts); err != nil {
		return fmt.Errorf("upload blob %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if _, err := s.client.DeleteBlob(ctx, s.container, key, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil
		}
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}

// ReportKey places a report under reports/<yyyy>/<mm>/.
func ReportKey(reportPath string, at time.Time) string {
	return path.Join("reports", at.Format("2006"), at.Format("01"), filepath.Base(reportPath))
}

// UploadReport copies the report file at reportPath and returns its key.
func (s *Store) UploadReport(ctx context.Context, reportPath string) (string, error) {
	f, err := os.Open(reportPath)
	if err != nil {
		return "", common.WrapError(err, "open report")
	}
	defer f.Close()

	if err := s.EnsureContainer(ctx); err != nil {
		return "", err
	}
	key := ReportKey(reportPath, time.Now().UTC())
	if err := s.Upload(ctx, key, f, contentType(reportPath)); err != nil {
		return "", err
	}
	s.logger.Info("storage.report.uploaded", "container", s.container, "key", key)
	return key, nil
}

func contentType(p string) string {
	switch constants.NormalizeExt(filepath.Ext(p)) {
	case constants.FormatXLSX:
		return constants.XLSXContentType
	case constants.FormatCSV:
		return "text/csv"
	case constants.FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}
