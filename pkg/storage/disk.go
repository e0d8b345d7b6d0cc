// Package storage is where order exports land. Two drivers are available:
//   - "local": a directory on the local filesystem (default)
//   - "s3": S3-compatible object storage (AWS S3, MinIO, R2, Spaces)
//
//	disk, err := storage.Open(ctx, config.Get("STORAGE_DISK", "local"))
//	err = disk.Put(ctx, "exports/delivery/20240510-150000.json", data)
//	fmt.Println(disk.URL("exports/delivery/20240510-150000.json"))
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/shashiranjanraj/platter/config"
)

// Disk is the driver interface. Paths are slash separated and relative to
// the disk root.
type Disk interface {
	// Put writes content to path, creating parents as needed.
	Put(ctx context.Context, path string, content []byte) error

	Get(ctx context.Context, path string) ([]byte, error)

	Exists(ctx context.Context, path string) bool

	// Delete removes a file. Returns nil if the file did not exist.
	Delete(ctx context.Context, path string) error

	// Files lists the files directly inside directory.
	Files(ctx context.Context, directory string) ([]string, error)

	// URL returns where a reader can fetch path.
	URL(path string) string

	Driver() string
}

var ErrUnknownDriver = errors.New("storage: unknown disk driver")

// Open builds the named disk from configuration.
func Open(ctx context.Context, driver string) (Disk, error) {
	switch driver {
	case "", "local":
		return NewLocal(config.Get("STORAGE_ROOT", "."), config.Get("STORAGE_URL", "")), nil
	case "s3":
		return NewS3(ctx, S3Config{
			Bucket:   config.Get("S3_BUCKET", ""),
			Region:   config.Get("S3_REGION", "us-east-1"),
			Key:      config.Get("S3_KEY", ""),
			Secret:   config.Get("S3_SECRET", ""),
			Endpoint: config.Get("S3_ENDPOINT", ""),
			BaseURL:  config.Get("S3_URL", ""),
		})
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}
