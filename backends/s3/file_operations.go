package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/zap"

	"github.com/getninjas/nondjango-storages/backends"
	"github.com/getninjas/nondjango-storages/metrics"
)

// ReadIntoStream downloads the object behind a fully qualified address into
// an in-memory buffer, rewound to the start. A missing object maps to
// ErrNotFound; any other transport error propagates.
func (a *Adapter) ReadIntoStream(ctx context.Context, name string) (_ *bytes.Reader, err error) {
	defer metrics.ObserveBackendOp(backendType, "read", time.Now(), &err)

	bucket, key, err := splitAddress(name)
	if err != nil {
		return nil, err
	}
	if bucket != a.bucketName {
		return nil, fmt.Errorf("%w: bucket %q does not match storage bucket %q",
			backends.ErrSuspiciousOperation, bucket, a.bucketName)
	}

	svc, err := a.svc()
	if err != nil {
		return nil, err
	}

	result, err := svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			a.logger.Debug("object does not exist",
				zap.String("bucket", bucket),
				zap.String("key", key))
			return nil, fmt.Errorf("%w: %s%s/%s", backends.ErrNotFound, scheme, bucket, key)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to download object body: %w", err)
	}
	return bytes.NewReader(data), nil
}

// Write uploads the contents of r to the resolved key, creating the bucket
// first if it does not exist yet.
func (a *Adapter) Write(ctx context.Context, r io.Reader, name string) (err error) {
	defer metrics.ObserveBackendOp(backendType, "write", time.Now(), &err)

	key, err := a.normalizeName(name)
	if err != nil {
		return err
	}
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}

	svc, err := a.svc()
	if err != nil {
		return err
	}

	a.logger.Info("writing object",
		zap.String("bucket", a.bucketName),
		zap.String("key", key))
	_, err = svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to put object to S3: %w", err)
	}
	return nil
}

// Delete removes the object behind the logical name. A nil error from the
// backend is the success signal; the DeleteMarker field only carries
// meaning on versioned buckets, where it reports that a marker was placed,
// so its value is no evidence either way on unversioned ones.
func (a *Adapter) Delete(ctx context.Context, name string) (err error) {
	defer metrics.ObserveBackendOp(backendType, "delete", time.Now(), &err)

	valid, err := a.ValidName(name)
	if err != nil {
		return err
	}
	key, err := a.normalizeName(valid)
	if err != nil {
		return err
	}

	svc, err := a.svc()
	if err != nil {
		return err
	}

	_, err = svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}

	a.logger.Debug("object deleted",
		zap.String("bucket", a.bucketName),
		zap.String("key", key))
	return nil
}
