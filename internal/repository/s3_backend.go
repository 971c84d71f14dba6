package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	appConfig "github.com/magcho/hedgedoc/internal/config"
	"github.com/magcho/hedgedoc/internal/domain"
)

// s3BackendData is the locator blob this backend stores per upload.
type s3BackendData struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// S3Backend implements domain.StorageBackend on any S3-compatible store
// (SeaweedFS, MinIO, AWS) using AWS SDK v2.
type S3Backend struct {
	client *s3.Client
	bucket string
}

// NewS3Backend creates the backend and ensures the bucket exists.
func NewS3Backend(ctx context.Context, cfg appConfig.S3Config) (*S3Backend, error) {
	// SeaweedFS/MinIO require a signature even with static "any" credentials
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config, %v", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true // required for most S3-compatible stores
	})

	backend := &S3Backend{
		client: client,
		bucket: cfg.Bucket,
	}

	if err := backend.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return backend, nil
}

// SaveFile uploads content under a key derived from the sanitized file name.
// PutObject is atomic on the S3 side: either the full object lands or nothing.
func (b *S3Backend) SaveFile(ctx context.Context, content []byte, fileName string) (string, string, error) {
	key, err := sanitizeFileName(fileName)
	if err != nil {
		return "", "", err
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload file to S3: %w", err)
	}

	backendData, err := json.Marshal(s3BackendData{Bucket: b.bucket, Key: key})
	if err != nil {
		return "", "", fmt.Errorf("failed to encode backend data: %w", err)
	}
	return key, string(backendData), nil
}

func (b *S3Backend) GetFile(ctx context.Context, fileName string, backendData string) ([]byte, error) {
	bucket, key, err := b.resolveObject(fileName, backendData)
	if err != nil {
		return nil, err
	}

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, domain.ErrArtifactMissing
		}
		return nil, fmt.Errorf("failed to get file from S3: %w", err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}
	return content, nil
}

// DeleteFile removes the object. S3 DeleteObject succeeds for absent keys, so
// the object is checked first to honor the ErrArtifactMissing contract.
func (b *S3Backend) DeleteFile(ctx context.Context, fileName string, backendData string) error {
	bucket, key, err := b.resolveObject(fileName, backendData)
	if err != nil {
		return err
	}

	_, err = b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return domain.ErrArtifactMissing
		}
		return fmt.Errorf("failed to check S3 object: %w", err)
	}

	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

// ListArtifacts implements domain.ArtifactLister for the orphan sweep.
func (b *S3Backend) ListArtifacts(ctx context.Context) ([]domain.Artifact, error) {
	var artifacts []domain.Artifact

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			artifacts = append(artifacts, domain.Artifact{
				Name:    aws.ToString(obj.Key),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	return artifacts, nil
}

// resolveObject prefers the recorded backend data over the derived key.
func (b *S3Backend) resolveObject(fileName string, backendData string) (string, string, error) {
	if backendData != "" {
		var data s3BackendData
		if err := json.Unmarshal([]byte(backendData), &data); err != nil {
			return "", "", fmt.Errorf("failed to decode backend data: %w", err)
		}
		if data.Bucket != "" && data.Key != "" {
			return data.Bucket, data.Key, nil
		}
	}

	key, err := sanitizeFileName(fileName)
	if err != nil {
		return "", "", err
	}
	return b.bucket, key, nil
}

// ensureBucket checks if the bucket exists, creating it if necessary
func (b *S3Backend) ensureBucket(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	if err != nil {
		_, err = b.client.CreateBucket(ctx, &s3.CreateBucketInput{
			Bucket: aws.String(b.bucket),
		})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", b.bucket, err)
		}
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &noSuchKey)
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	return errors.As(err, &notFound) || isNoSuchKey(err)
}
