package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/leengari/gridops/internal/changedata"
	"github.com/leengari/gridops/internal/changedata/filestore"
	"github.com/leengari/gridops/internal/changedata/objectstore"
	"github.com/leengari/gridops/internal/config"
)

// OpenChangeStore opens the change data store selected by cfg. Change data
// of different projects never share a directory or key prefix.
func OpenChangeStore(ctx context.Context, cfg config.StoreConfig, projectID string) (changedata.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return changedata.NewMemoryStore(), nil
	case config.BackendFile:
		store, err := filestore.New(filepath.Join(cfg.Dir, projectID))
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendS3:
		prefix := projectID
		if cfg.Prefix != "" {
			prefix = cfg.Prefix + "/" + projectID
		}
		store, err := objectstore.New(ctx, objectstore.Config{
			Endpoint:        cfg.Endpoint,
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
			UseSSL:          cfg.Secure,
			Bucket:          cfg.Bucket,
			Prefix:          prefix,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
