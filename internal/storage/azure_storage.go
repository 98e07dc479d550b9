package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureBlobFetcher reads images from one Azure storage account. References
// are either azblob://<container>/<blob> or the blob's https URL on the
// account endpoint.
type AzureBlobFetcher struct {
	client      *azblob.Client
	accountName string
	decoder     *Decoder
}

// NewAzureBlobFetcher authenticates with a shared key, or anonymously when
// accountKey is empty (public containers).
func NewAzureBlobFetcher(accountName, accountKey string) (*AzureBlobFetcher, error) {
	if accountName == "" {
		return nil, errors.New("azure storage account name is required")
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", accountName)

	var (
		client *azblob.Client
		err    error
	)
	if accountKey == "" {
		client, err = azblob.NewClientWithNoCredential(serviceURL, nil)
	} else {
		credential, credErr := azblob.NewSharedKeyCredential(accountName, accountKey)
		if credErr != nil {
			return nil, fmt.Errorf("invalid azure credential: %w", credErr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &AzureBlobFetcher{client: client, accountName: accountName, decoder: NewDecoder(0, nil)}, nil
}

// WithDecoder replaces the decoder and its limits
func (s *AzureBlobFetcher) WithDecoder(d *Decoder) *AzureBlobFetcher {
	if d != nil {
		s.decoder = d
	}
	return s
}

func (s *AzureBlobFetcher) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	containerName, blobName, err := ParseBlobReference(ref, s.accountName)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrImageNotFound, containerName, blobName)
		}
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.ContentLength != nil && *resp.ContentLength > s.decoder.MaxBytes() {
		return nil, ErrImageTooLarge
	}
	return s.decoder.Decode(resp.Body)
}

// ParseBlobReference splits a blob reference into container and blob name.
// For https references the host must belong to accountName.
func ParseBlobReference(ref, accountName string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}

	var containerName, blobName string
	switch u.Scheme {
	case "azblob":
		containerName = u.Host
		blobName = strings.TrimPrefix(u.Path, "/")
	case "https":
		if accountName != "" && !strings.EqualFold(u.Host, accountName+".blob.core.windows.net") {
			return "", "", fmt.Errorf("blob host %q does not belong to account %q", u.Host, accountName)
		}
		parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
		containerName = parts[0]
		if len(parts) == 2 {
			blobName = parts[1]
		}
	default:
		return "", "", fmt.Errorf("unsupported blob scheme %q", u.Scheme)
	}

	if containerName == "" || blobName == "" {
		return "", "", fmt.Errorf("blob reference %q must name a container and a blob", ref)
	}
	return containerName, blobName, nil
}

// IsAzureBlobURL reports whether ref points at an Azure blob endpoint
func IsAzureBlobURL(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return u.Scheme == "azblob" || strings.HasSuffix(strings.ToLower(u.Host), ".blob.core.windows.net")
}
