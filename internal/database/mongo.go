// Package database wraps MongoDB client initialization with retry logic so a
// cold-starting cluster does not fail application startup.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	connectTimeout = 10 * time.Second
	retryAttempts  = 3
	retryInterval  = 5 * time.Second
)

// Collection names used across services.
const (
	CollStation = "station"
	CollUser    = "user"
	CollReview  = "review"
)

var ErrConnectFailed = errors.New("failed to connect to mongodb")

// DB holds the connected client and the application database handle.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect establishes a verified connection, retrying to ride out cold starts
// and brief network interruptions.
func Connect(ctx context.Context, url, dbName string) (*DB, error) {
	var lastErr error

	for attempt := 1; attempt <= retryAttempts; attempt++ {
		client, err := mongo.Connect(options.Client().
			ApplyURI(url).
			SetConnectTimeout(connectTimeout))
		if err != nil {
			lastErr = err
		} else {
			pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
			err = client.Ping(pingCtx, nil)
			cancel()
			if err == nil {
				slog.Info("Connected to MongoDB", "database", dbName, "attempt", attempt)
				return &DB{client: client, db: client.Database(dbName)}, nil
			}
			lastErr = err
			_ = client.Disconnect(ctx)
		}

		slog.Warn("MongoDB connection attempt failed",
			"attempt", attempt,
			"max_attempts", retryAttempts,
			"error", lastErr,
		)
		if attempt < retryAttempts {
			select {
			case <-time.After(retryInterval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrConnectFailed, lastErr)
}

// Collection returns a handle to the named collection.
func (d *DB) Collection(name string) *mongo.Collection {
	return d.db.Collection(name)
}

// Ping verifies the connection is still usable, for health endpoints.
func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

func (d *DB) Disconnect(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}
