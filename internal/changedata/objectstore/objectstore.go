package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/leengari/gridops/internal/changedata"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds S3-compatible connection settings
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Bucket          string
	Prefix          string
}

// Store persists change data in an S3-compatible bucket using the same
// object layout as the file store
type Store struct {
	mc     *minio.Client
	bucket string
	prefix string
}

// New connects to the endpoint and creates the bucket if it does not exist
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("object store requires an endpoint and a bucket")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		slog.Info("bucket created", slog.String("bucket", cfg.Bucket))
	}
	return &Store{mc: mc, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

func (s *Store) dir(id string) string {
	return path.Join(s.prefix, id) + "/"
}

func (s *Store) key(id string, partition int) string {
	return s.dir(id) + changedata.PartitionName(partition) + changedata.PartitionFileSuffix
}

// objectWriter buffers the compressed partition and uploads it on Commit
type objectWriter struct {
	ctx   context.Context
	store *Store
	key   string
	buf   bytes.Buffer
	gz    *gzip.Writer
	done  bool
}

func (w *objectWriter) Write(p []byte) (int, error) {
	return w.gz.Write(p)
}

func (w *objectWriter) Commit() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.gz.Close(); err != nil {
		return err
	}
	_, err := w.store.mc.PutObject(w.ctx, w.store.bucket, w.key, bytes.NewReader(w.buf.Bytes()), int64(w.buf.Len()),
		minio.PutObjectOptions{ContentType: "application/gzip"})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", w.key, err)
	}
	return nil
}

func (w *objectWriter) Abort() error {
	w.done = true
	w.buf.Reset()
	return nil
}

func (s *Store) Create(ctx context.Context, id string, partition int) (changedata.PartitionWriter, error) {
	w := &objectWriter{ctx: ctx, store: s, key: s.key(id, partition)}
	w.gz = gzip.NewWriter(&w.buf)
	return w, nil
}

type objectReader struct {
	obj *minio.Object
	gz  *gzip.Reader
}

func (r *objectReader) Read(p []byte) (int, error) { return r.gz.Read(p) }

func (r *objectReader) Close() error {
	gzErr := r.gz.Close()
	if err := r.obj.Close(); err != nil {
		return err
	}
	return gzErr
}

func (s *Store) Open(ctx context.Context, id string, partition int) (io.ReadCloser, error) {
	obj, err := s.mc.GetObject(ctx, s.bucket, s.key(id, partition), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open partition %d of %s: %w", partition, id, err)
	}
	gz, err := gzip.NewReader(obj)
	if err != nil {
		obj.Close()
		return nil, fmt.Errorf("corrupt partition %d of %s: %w", partition, id, err)
	}
	return &objectReader{obj: obj, gz: gz}, nil
}

func (s *Store) Partitions(ctx context.Context, id string) ([]int, error) {
	prefix := s.dir(id)
	ch := s.mc.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix})
	var out []int
	for obj := range ch {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if idx, ok := changedata.ParsePartitionName(strings.TrimPrefix(obj.Key, prefix)); ok {
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	ch := s.mc.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.dir(id), Recursive: true})
	for obj := range ch {
		if obj.Err != nil {
			return obj.Err
		}
		if err := s.mc.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", obj.Key, err)
		}
	}
	return nil
}
