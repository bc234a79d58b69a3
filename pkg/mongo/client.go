package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Client wraps the mongo driver client together with the selected database.
type Client struct {
	*mongo.Client
	DB     *mongo.Database
	logger *zap.Logger
}

// NewClient connects to MongoDB, verifies connectivity and selects dbName.
func NewClient(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Client, error) {
	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(10 * time.Second)
	c, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := c.Ping(ctx, readpref.Primary()); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("MongoDB client connected", zap.String("db", dbName))
	return &Client{Client: c, DB: c.Database(dbName), logger: logger}, nil
}

// Close disconnects with a bounded timeout.
func (c *Client) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Disconnect(ctx); err != nil {
		c.logger.Warn("mongo disconnect", zap.Error(err))
	}
}
