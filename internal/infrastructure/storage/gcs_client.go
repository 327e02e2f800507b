package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"firechat/pkg/errors"
)

// CloudStorageClient stores chat image attachments and returns the URL that
// goes into a message's image field.
type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
}

func NewCloudStorageClient(ctx context.Context, bucketName string, opts ...option.ClientOption) (*CloudStorageClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	return &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// ObjectName builds the object path for an image posted to chatID.
func ObjectName(chatID, contentType string, now time.Time) (string, error) {
	var ext string
	switch contentType {
	case "image/jpeg", "image/jpg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/gif":
		ext = ".gif"
	case "image/webp":
		ext = ".webp"
	default:
		return "", errors.Validation("Unsupported image type "+contentType, nil)
	}
	return fmt.Sprintf("chats/%s/%s-%s%s", chatID, uuid.New().String(), now.Format("20060102150405"), ext), nil
}

func (c *CloudStorageClient) UploadImage(ctx context.Context, chatID string, file io.Reader, contentType string) (string, error) {
	name, err := ObjectName(chatID, contentType, time.Now())
	if err != nil {
		return "", err
	}

	obj := c.client.Bucket(c.bucketName).Object(name)
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=86400"

	if _, err := io.Copy(wc, file); err != nil {
		wc.Close()
		return "", errors.FromBackend("Failed to upload image", err)
	}
	if err := wc.Close(); err != nil {
		return "", errors.FromBackend("Failed to upload image", err)
	}

	return c.PublicURL(name), nil
}

func (c *CloudStorageClient) PublicURL(objectName string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, objectName)
}

func (c *CloudStorageClient) DeleteImage(ctx context.Context, fileURL string) error {
	prefix := "https://storage.googleapis.com/" + c.bucketName + "/"
	if !strings.HasPrefix(fileURL, prefix) {
		return errors.Validation("Image URL does not belong to this bucket", nil)
	}

	if err := c.client.Bucket(c.bucketName).Object(fileURL[len(prefix):]).Delete(ctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return errors.NotFound("Image", err)
		}
		return errors.FromBackend("Failed to delete image", err)
	}
	return nil
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}
