package s3

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/zap"

	"github.com/getninjas/nondjango-storages/backends"
	"github.com/getninjas/nondjango-storages/metrics"
)

// List enumerates objects by key prefix, yielding (ETag, key suffix) pairs.
// Directory marker keys are skipped. A missing bucket yields an empty
// result, not an error.
func (a *Adapter) List(ctx context.Context, path string) (_ []backends.Entry, err error) {
	defer metrics.ObserveBackendOp(backendType, "list", time.Now(), &err)

	valid, err := a.ValidName(path)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("listing objects", zap.String("prefix", valid))

	bucket, prefix, err := splitAddress(valid)
	if err != nil {
		return nil, err
	}

	svc, err := a.svc()
	if err != nil {
		return nil, err
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}

	var entries []backends.Entry
	for {
		result, err := svc.ListObjectsV2WithContext(ctx, input)
		if err != nil {
			if isNoSuchBucket(err) {
				a.logger.Warn("bucket does not exist, returning empty listing",
					zap.String("bucket", bucket))
				return nil, nil
			}
			return nil, fmt.Errorf("failed to list objects in S3: %w", err)
		}

		for _, object := range result.Contents {
			if object.Key == nil || strings.HasSuffix(*object.Key, "/") {
				continue // skip directory markers
			}
			etag := ""
			if object.ETag != nil {
				etag = strings.Trim(*object.ETag, `"`)
			}
			rel := strings.TrimPrefix(strings.TrimPrefix(*object.Key, prefix), "/")
			entries = append(entries, backends.Entry{
				Fingerprint: etag,
				Path:        rel,
			})
		}

		if result.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = result.NextContinuationToken
	}
	return entries, nil
}

// ListDir separates the immediate "directories" (common prefixes) from the
// immediate "files" (objects) under path, using prefix+delimiter pagination
// and aggregating all pages before returning.
func (a *Adapter) ListDir(ctx context.Context, path string) (dirs []string, files []string, err error) {
	defer metrics.ObserveBackendOp(backendType, "listdir", time.Now(), &err)

	valid, err := a.ValidName(path)
	if err != nil {
		return nil, nil, err
	}
	prefix, err := a.normalizeName(valid)
	if err != nil {
		return nil, nil, err
	}
	// The prefix needs to end with a separator, but if the root is empty,
	// leave it.
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	svc, err := a.svc()
	if err != nil {
		return nil, nil, err
	}

	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(a.bucketName),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}

	for {
		result, err := svc.ListObjectsV2WithContext(ctx, input)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list objects in S3: %w", err)
		}

		for _, commonPrefix := range result.CommonPrefixes {
			if commonPrefix.Prefix == nil {
				continue
			}
			dirName := strings.TrimSuffix(strings.TrimPrefix(*commonPrefix.Prefix, prefix), "/")
			if dirName == "" {
				continue
			}
			dirs = append(dirs, dirName)
		}

		for _, object := range result.Contents {
			if object.Key == nil {
				continue
			}
			fileName := strings.TrimPrefix(*object.Key, prefix)
			if fileName == "" {
				continue // skip the directory marker itself
			}
			files = append(files, fileName)
		}

		if result.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = result.NextContinuationToken
	}
	return dirs, files, nil
}

// Exists reports whether name's basename appears among the files of its
// parent prefix.
func (a *Adapter) Exists(ctx context.Context, name string) (bool, error) {
	dirname, filename := splitName(name)
	_, files, err := a.ListDir(ctx, dirname)
	if err != nil {
		return false, err
	}
	for _, f := range files {
		if f == filename {
			return true, nil
		}
	}
	return false, nil
}

func splitName(name string) (dir, base string) {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
