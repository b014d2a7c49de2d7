package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store keeps images and audit records under images/ and history/ key
// prefixes in a single bucket. Credentials come from the default AWS
// config chain.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Store(ctx context.Context, bucket, prefix string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 store needs a bucket name")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return nil, fmt.Errorf("head bucket %s: %w", bucket, err)
	}
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *S3Store) PutImage(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := s.keyFor("images", name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ACL:         types.ObjectCannedACLPrivate,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload image %s: %w", name, err)
	}
	return s.objectURL(key), nil
}

func (s *S3Store) PutRecord(ctx context.Context, name string, record *Record) (string, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encode record %s: %w", name, err)
	}
	key := s.keyFor("history", name)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ACL:         types.ObjectCannedACLPrivate,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload record %s: %w", name, err)
	}
	return s.objectURL(key), nil
}

func (s *S3Store) ListRecordNames(ctx context.Context, limit int) ([]string, error) {
	keyPrefix := s.keyFor("history", "") + "/"

	var names []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(keyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list history objects: %w", err)
		}
		for _, object := range page.Contents {
			if object.Key != nil {
				names = append(names, strings.TrimPrefix(*object.Key, keyPrefix))
			}
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

func (s *S3Store) GetRecord(ctx context.Context, name string) (map[string]any, error) {
	key := s.keyFor("history", name)
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", name, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", name, err)
	}

	var record map[string]any
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, &DecodeError{Name: name, Err: err}
	}
	return record, nil
}

func (s *S3Store) keyFor(namespace, name string) string {
	if s.prefix == "" {
		return path.Join(namespace, name)
	}
	return path.Join(s.prefix, namespace, name)
}

func (s *S3Store) objectURL(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}
