// Package suite starts throwaway Redis and MongoDB containers for
// integration tests. Tests are skipped when no Docker daemon is reachable.
package suite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	expireDuration  = 120
	maxWaitDuration = 120 * time.Second
)

type Suite struct {
	*testing.T
	Logger *zap.SugaredLogger

	pool *dockertest.Pool
}

func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(cancel)

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("could not construct docker pool: %v", err)
	}
	if err = pool.Client.Ping(); err != nil {
		t.Skipf("docker is not available: %v", err)
	}
	pool.MaxWait = maxWaitDuration

	return ctx, &Suite{
		T:      t,
		Logger: zap.NewNop().Sugar(),
		pool:   pool,
	}
}

func (s *Suite) run(repository, tag string) *dockertest.Resource {
	s.Helper()

	// pulls an image, creates a container based on it and runs it
	resource, err := s.pool.RunWithOptions(&dockertest.RunOptions{
		Repository: repository,
		Tag:        tag,
	}, func(config *docker.HostConfig) {
		// set AutoRemove to true so that stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		s.Fatalf("could not start %s: %v", repository, err)
	}

	// never returns error
	_ = resource.Expire(expireDuration)

	s.Cleanup(func() {
		if err := s.pool.Purge(resource); err != nil {
			s.Logf("could not purge %s: %v", repository, err)
		}
	})
	return resource
}

func (s *Suite) Redis(ctx context.Context) *redis.Client {
	s.Helper()

	resource := s.run("redis", "alpine")
	addr := resource.GetHostPort("6379/tcp")

	var client *redis.Client
	// exponential backoff-retry, the server in the container may not be ready yet
	if err := s.pool.Retry(func() error {
		client = redis.NewClient(&redis.Options{Addr: addr})
		return client.Ping(ctx).Err()
	}); err != nil {
		s.Fatalf("could not connect to redis: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		s.Fatalf("could not flush database: %v", err)
	}
	s.Cleanup(func() { _ = client.Close() })
	return client
}

func (s *Suite) Mongo(ctx context.Context) *mongo.Database {
	s.Helper()

	resource := s.run("mongo", "7")
	uri := fmt.Sprintf("mongodb://%s", resource.GetHostPort("27017/tcp"))

	var client *mongo.Client
	if err := s.pool.Retry(func() error {
		var err error
		client, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		return client.Ping(ctx, nil)
	}); err != nil {
		s.Fatalf("could not connect to mongo: %v", err)
	}

	s.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client.Database("weiqi_room_test")
}
