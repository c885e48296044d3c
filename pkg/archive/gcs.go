package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/teslashibe/blurry-classifier/pkg/camera"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/storage/v1"
)

// GCSConfig configures a GCSSink.
type GCSConfig struct {
	Bucket string

	// Prefix is prepended to every object name.
	Prefix string

	// CredentialsFile is a service account JSON key. Empty means
	// application default credentials.
	CredentialsFile string
}

// GCSSink uploads frames to a Cloud Storage bucket.
type GCSSink struct {
	svc    *storage.Service
	bucket string
	prefix string
}

// NewGCSSink creates a sink. Extra client options are appended after the
// credentials, so tests can point it at a fake endpoint.
func NewGCSSink(ctx context.Context, cfg GCSConfig, opts ...option.ClientOption) (*GCSSink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: gcs bucket is required")
	}

	var clientOpts []option.ClientOption
	if len(opts) == 0 {
		creds, err := credentials(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts, option.WithCredentials(creds))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := storage.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("archive: create storage service: %w", err)
	}

	return &GCSSink{
		svc:    svc,
		bucket: cfg.Bucket,
		prefix: strings.TrimPrefix(cfg.Prefix, "/"),
	}, nil
}

func credentials(ctx context.Context, file string) (*google.Credentials, error) {
	if file == "" {
		creds, err := google.FindDefaultCredentials(ctx, storage.DevstorageReadWriteScope)
		if err != nil {
			return nil, fmt.Errorf("archive: default credentials: %w", err)
		}
		return creds, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("archive: read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, storage.DevstorageReadWriteScope)
	if err != nil {
		return nil, fmt.Errorf("archive: parse credentials: %w", err)
	}
	return creds, nil
}

// Store uploads img as prefix+name and returns its gs:// URL.
func (s *GCSSink) Store(ctx context.Context, name string, img *camera.Image) (string, error) {
	if err := check(img); err != nil {
		return "", err
	}

	objectName := s.prefix + name
	obj := &storage.Object{
		Name:        objectName,
		ContentType: img.MimeType,
	}

	res, err := s.svc.Objects.Insert(s.bucket, obj).
		Media(bytes.NewReader(img.Data), googleapi.ContentType(img.MimeType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("archive: upload %s: %w", objectName, err)
	}

	return fmt.Sprintf("gs://%s/%s", res.Bucket, res.Name), nil
}
