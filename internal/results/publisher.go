package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/wordbench/wordbench/internal/models"
	"github.com/wordbench/wordbench/internal/reporting"
)

// DefaultContainer is where published reports land unless configured
// otherwise.
const DefaultContainer = "wordbench-results"

// BlobAPI is the slice of the azblob client the publisher needs. Tests
// substitute a fake; production code passes *azblob.Client.
type BlobAPI interface {
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
	UploadBuffer(ctx context.Context, containerName string, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

// PublishConfig says where to publish reports.
type PublishConfig struct {
	// AccountURL is a blob service endpoint such as
	// https://myaccount.blob.core.windows.net. Authentication runs
	// through the default Azure credential chain (environment,
	// workload identity, managed identity, az login).
	AccountURL string

	// ConnectionString wins over AccountURL when both are set.
	ConnectionString string

	// Container defaults to DefaultContainer when empty.
	Container string
}

// Publisher uploads benchmark reports to Azure Blob Storage so runs can
// be shared and compared across machines.
type Publisher struct {
	client    BlobAPI
	container string
}

// NewPublisher builds a publisher from config, picking the credential
// flow from whichever of ConnectionString or AccountURL is set.
func NewPublisher(cfg PublishConfig) (*Publisher, error) {
	container := cfg.Container
	if container == "" {
		container = DefaultContainer
	}

	switch {
	case cfg.ConnectionString != "":
		client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("creating blob client: %w", err)
		}
		return &Publisher{client: client, container: container}, nil
	case cfg.AccountURL != "":
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("acquiring Azure credential: %w", err)
		}
		client, err := azblob.NewClient(cfg.AccountURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("creating blob client: %w", err)
		}
		return &Publisher{client: client, container: container}, nil
	default:
		return nil, errors.New("publishing requires an account URL or connection string")
	}
}

// NewPublisherWithClient wires a publisher to an existing client.
func NewPublisherWithClient(client BlobAPI, container string) *Publisher {
	if container == "" {
		container = DefaultContainer
	}
	return &Publisher{client: client, container: container}
}

// Publish uploads the report as JSON alongside a rendered markdown
// summary, both under a virtual directory named after the run ID. The
// uploaded blob names are returned.
func (p *Publisher) Publish(ctx context.Context, report *models.BenchmarkReport) ([]string, error) {
	_, err := p.client.CreateContainer(ctx, p.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("creating container %s: %w", p.container, err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling report: %w", err)
	}

	metadata := map[string]*string{
		"runid":       to.Ptr(report.RunID),
		"interrupted": to.Ptr(strconv.FormatBool(report.Interrupted)),
	}

	uploads := []struct {
		name        string
		contentType string
		body        []byte
	}{
		{report.RunID + "/report.json", "application/json", data},
		{report.RunID + "/report.md", "text/markdown", []byte(reporting.RenderMarkdown(report))},
	}

	names := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		opts := &azblob.UploadBufferOptions{
			HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(upload.contentType)},
			Metadata:    metadata,
		}
		if _, err := p.client.UploadBuffer(ctx, p.container, upload.name, upload.body, opts); err != nil {
			return nil, fmt.Errorf("uploading %s: %w", upload.name, err)
		}
		names = append(names, upload.name)
	}
	return names, nil
}
