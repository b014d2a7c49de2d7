package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureConfig selects the credential and the two container names.
// ConnectionString wins when set; otherwise Account/Key shared-key
// credentials are used.
type AzureConfig struct {
	ConnectionString string
	Account          string
	Key              string
	ImagesContainer  string
	HistoryContainer string
}

// AzureStore keeps images and audit records in two Azure blob containers.
type AzureStore struct {
	client  *azblob.Client
	images  string
	history string
}

// NewAzureStore builds the client and lazily creates both containers.
// Any failure here means the whole store is unavailable; the caller
// records the error and keeps serving without persistence.
func NewAzureStore(ctx context.Context, cfg AzureConfig) (*AzureStore, error) {
	client, err := newAzureClient(cfg)
	if err != nil {
		return nil, err
	}

	s := &AzureStore{
		client:  client,
		images:  cfg.ImagesContainer,
		history: cfg.HistoryContainer,
	}
	for _, container := range []string{s.images, s.history} {
		if err := s.ensureContainer(ctx, container); err != nil {
			return nil, fmt.Errorf("ensure container %s: %w", container, err)
		}
	}
	return s, nil
}

func newAzureClient(cfg AzureConfig) (*azblob.Client, error) {
	if cfg.ConnectionString != "" {
		client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("create blob client from connection string: %w", err)
		}
		return client, nil
	}
	if cfg.Account == "" || cfg.Key == "" {
		return nil, fmt.Errorf("azure store needs a connection string or account/key")
	}
	credential, err := azblob.NewSharedKeyCredential(cfg.Account, cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("build shared key credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.Account)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	return client, nil
}

func (s *AzureStore) ensureContainer(ctx context.Context, name string) error {
	_, err := s.client.CreateContainer(ctx, name, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return err
	}
	return nil
}

func (s *AzureStore) PutImage(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.UploadBuffer(ctx, s.images, name, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", fmt.Errorf("upload image %s: %w", name, err)
	}
	return s.blobURL(s.images, name), nil
}

func (s *AzureStore) PutRecord(ctx context.Context, name string, record *Record) (string, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encode record %s: %w", name, err)
	}
	contentType := "application/json"
	_, err = s.client.UploadBuffer(ctx, s.history, name, payload, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", fmt.Errorf("upload record %s: %w", name, err)
	}
	return s.blobURL(s.history, name), nil
}

func (s *AzureStore) ListRecordNames(ctx context.Context, limit int) ([]string, error) {
	var names []string
	pager := s.client.NewListBlobsFlatPager(s.history, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list history blobs: %w", err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

func (s *AzureStore) GetRecord(ctx context.Context, name string) (map[string]any, error) {
	resp, err := s.client.DownloadStream(ctx, s.history, name, nil)
	if err != nil {
		return nil, fmt.Errorf("download record %s: %w", name, err)
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

func (s *AzureStore) blobURL(container, name string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.client.URL(), "/"), container, name)
}
