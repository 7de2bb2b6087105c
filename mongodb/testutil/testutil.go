// Package testutil provides throwaway MongoDB databases for integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoImage = "mongo:7"

var (
	containerOnce sync.Once
	containerURI  string
	containerErr  error
)

// MongoURI returns TEST_MONGO_URI when set. Otherwise it starts, once per
// test binary, a MongoDB container and returns its address. The container is
// reaped by testcontainers when the process exits.
func MongoURI(ctx context.Context) (string, error) {
	if uri := os.Getenv("TEST_MONGO_URI"); uri != "" {
		return uri, nil
	}
	if os.Getenv("TEST_MONGO_NO_CONTAINER") != "" {
		return "", fmt.Errorf("TEST_MONGO_URI not set and containers disabled")
	}

	containerOnce.Do(func() {
		containerURI, containerErr = startContainer(ctx)
	})
	return containerURI, containerErr
}

func startContainer(ctx context.Context) (uri string, err error) {
	// testcontainers panics when no Docker host can be found.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker unavailable: %v", r)
		}
	}()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        mongoImage,
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := container.MappedPort(ctx, "27017")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("mongodb://%s:%s", host, port.Port()), nil
}

// SetupTestMongoDB connects to a test MongoDB and returns a database with a
// unique name derived from dbNamePrefix. The test is skipped when no MongoDB
// is available. The cleanup function drops the database and disconnects.
func SetupTestMongoDB(t *testing.T, dbNamePrefix string) (*mongo.Database, func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	mongoURI, err := MongoURI(ctx)
	if err != nil {
		t.Skipf("Skipping MongoDB integration test: %v", err)
	}

	dbName := fmt.Sprintf("%s_%d", dbNamePrefix, time.Now().UnixNano())

	clientOpts := options.Client().
		ApplyURI(mongoURI).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		t.Fatalf("Failed to create MongoDB client: %v (URI: %s)", err, mongoURI)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 10*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("Skipping MongoDB integration test, ping failed: %v (URI: %s)", err, mongoURI)
	}

	db := client.Database(dbName)

	cleanup := func() {
		dropCtx, cancelDrop := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelDrop()
		if err := db.Drop(dropCtx); err != nil {
			t.Logf("Warning: Failed to drop database %s: %v", dbName, err)
		}
		if err := client.Disconnect(dropCtx); err != nil {
			t.Logf("Warning: Failed to disconnect MongoDB client: %v", err)
		}
	}

	return db, cleanup
}
