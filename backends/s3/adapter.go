// Package s3 implements the backends.Storage interface against an
// S3-compatible bucket. Names are addressed through the fully qualified
// "s3://bucket/prefix/name" form produced by ValidName, and operations
// re-derive the bucket and in-bucket key from that form before talking to
// the object store.
package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/zap"

	"github.com/getninjas/nondjango-storages/backends"
	"github.com/getninjas/nondjango-storages/config"
	"github.com/getninjas/nondjango-storages/internal/pathutil"
	"github.com/getninjas/nondjango-storages/metrics"
)

const (
	backendType = "s3"
	scheme      = "s3://"
)

// Adapter implements the backends.Storage interface for S3-compatible
// object storage. The connected client is built lazily on first use;
// credential resolution is limited to passing the configured settings to
// the session constructor.
type Adapter struct {
	bucketName string
	workdir    string
	settings   config.Settings
	logger     *zap.Logger

	clientOnce sync.Once
	client     *s3.S3
	clientErr  error
}

// NewAdapter creates an S3 storage adapter rooted at an address of the form
// "s3://bucket/prefix/". A nil logger disables logging.
func NewAdapter(root string, settings config.Settings, logger *zap.Logger) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bucket, prefix, err := splitAddress(root)
	if err != nil {
		return nil, err
	}

	workdir := ""
	if prefix != "" {
		workdir = path.Clean(strings.Trim(prefix, "/"))
		if workdir == "." {
			workdir = ""
		}
	}

	return &Adapter{
		bucketName: bucket,
		workdir:    workdir,
		settings:   settings,
		logger:     logger,
	}, nil
}

// svc returns the connected S3 client, building it on first use.
func (a *Adapter) svc() (*s3.S3, error) {
	a.clientOnce.Do(func() {
		a.logger.Debug("building S3 client", zap.String("bucket", a.bucketName))

		awsConfig := &aws.Config{
			Region:     aws.String(a.settings.Region),
			DisableSSL: aws.Bool(!a.settings.UseSSL),
		}
		if a.settings.AccessKeyID != "" {
			awsConfig.Credentials = credentials.NewStaticCredentials(
				a.settings.AccessKeyID,
				a.settings.SecretAccessKey,
				a.settings.SessionToken,
			)
		}
		if a.settings.EndpointURL != "" {
			awsConfig.Endpoint = aws.String(a.settings.EndpointURL)
			awsConfig.S3ForcePathStyle = aws.Bool(true) // Required for MinIO and other S3 compatibles
		}

		sess, err := session.NewSession(awsConfig)
		if err != nil {
			a.clientErr = fmt.Errorf("failed to create AWS session: %w", err)
			return
		}
		a.client = s3.New(sess)
	})
	return a.client, a.clientErr
}

// ValidName maps a logical name to its fully qualified address, collapsing
// any doubled separators after the scheme. A name already in fully
// qualified form is re-validated against this adapter's bucket and prefix
// rather than wrapped a second time, so handles can feed their own name
// back into list and delete.
func (a *Adapter) ValidName(name string) (string, error) {
	if strings.HasPrefix(name, scheme) {
		if _, err := a.normalizeName(name); err != nil {
			return "", err
		}
		return name, nil
	}
	valid, err := pathutil.ValidName(name)
	if err != nil {
		metrics.SuspiciousOperationsTotal.WithLabelValues(backendType).Inc()
		return "", fmt.Errorf("%w: attempted access to %q denied", backends.ErrSuspiciousOperation, name)
	}
	return scheme + pathutil.CollapseSlashes(a.bucketName+"/"+a.workdir+"/"+valid), nil
}

// normalizeName checks a fully qualified address against this adapter's
// bucket and prefix and returns the in-bucket key. This runs on every
// operation even though ValidName has already vetted the name.
func (a *Adapter) normalizeName(name string) (string, error) {
	prefix := scheme + pathutil.CollapseSlashes(a.bucketName+"/"+a.workdir+"/")
	if !strings.HasPrefix(name, prefix) || strings.Contains(name, "../") {
		metrics.SuspiciousOperationsTotal.WithLabelValues(backendType).Inc()
		return "", fmt.Errorf("%w: attempted access to %q denied", backends.ErrSuspiciousOperation, name)
	}
	return strings.TrimPrefix(name, scheme+a.bucketName+"/"), nil
}

// Open validates the name and binds it to a handle. The network is not
// touched.
func (a *Adapter) Open(name, mode string) (*backends.File, error) {
	valid, err := a.ValidName(name)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("opening file", zap.String("name", valid))
	return backends.NewFile(valid, a, mode), nil
}

// Close releases per-handle resources. Nothing to release for S3.
func (a *Adapter) Close(f *backends.File) error {
	return nil
}

// ensureBucket lazily creates the bucket. An already existing bucket is
// success, not an error.
func (a *Adapter) ensureBucket(ctx context.Context) error {
	svc, err := a.svc()
	if err != nil {
		return err
	}

	_, err = svc.CreateBucketWithContext(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucketName),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) {
			switch aerr.Code() {
			case s3.ErrCodeBucketAlreadyExists, s3.ErrCodeBucketAlreadyOwnedByYou:
				return nil
			}
		}
		return fmt.Errorf("failed to create bucket %s: %w", a.bucketName, err)
	}
	return nil
}

// splitAddress splits "s3://bucket/path/with/segments" into the bucket and
// the in-bucket path, cutting on the first separator after the scheme.
func splitAddress(addr string) (bucket, key string, err error) {
	if !strings.HasPrefix(addr, scheme) {
		return "", "", fmt.Errorf("address %q does not start with %s", addr, scheme)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(addr, scheme), "/")
	if bucket == "" {
		return "", "", fmt.Errorf("address %q has no bucket", addr)
	}
	return bucket, key, nil
}

// isNotFound checks if an error indicates the object was not found
func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}

// isNoSuchBucket checks if an error indicates the bucket does not exist
func isNoSuchBucket(err error) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchBucket
}
