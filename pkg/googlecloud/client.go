package googlecloud

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/datastore"
)

// Client wraps the Google Cloud Datastore client to store extraction runs.
type Client struct {
	ds *datastore.Client
}

// NewClient creates a new Google Cloud Datastore client.
// The official client picks up DATASTORE_EMULATOR_HOST on its own.
func NewClient(ctx context.Context, projectID string) (*Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("gcp project id is required")
	}
	if emulatorHost := os.Getenv("DATASTORE_EMULATOR_HOST"); emulatorHost != "" {
		fmt.Printf("Initializing Datastore Client against Emulator at %s\n", emulatorHost)
	}

	ds, err := datastore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create datastore client: %w", err)
	}

	return &Client{ds: ds}, nil
}

// Close closes the underlying datastore client.
func (c *Client) Close() error {
	return c.ds.Close()
}
