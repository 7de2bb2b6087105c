package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/identity-mongodb/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

// DefaultConnectTimeout bounds connecting and the initial ping.
const DefaultConnectTimeout = 10 * time.Second

// newClient connects to uri with OpenTelemetry command monitoring and pings
// the primary. The client is disconnected again when the ping fails.
func newClient(ctx context.Context, uri string, timeout time.Duration, logger log.Logger) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("mongodb uri must be provided")
	}
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info(ctx, "MongoDB client connected")
	return client, nil
}

// ping checks the primary with a short timeout, for health checks.
func ping(ctx context.Context, client *mongo.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(pingCtx, readpref.Primary())
}
