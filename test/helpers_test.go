//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	goSoap "github.com/MrEthical07/goSoap"
	"github.com/MrEthical07/goSoap/soaptest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const expiredFault = "Not logged on"

// redisMode describes which Redis backend the suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes returns the Redis backends to test. miniredis is always
// available; REDIS_ADDR, REDIS_CLUSTER_ADDRS and REDIS_SENTINEL_ADDRS add
// real deployments.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ping(t, rdb, "Redis at "+addr)
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}

	if addrs := os.Getenv("REDIS_CLUSTER_ADDRS"); addrs != "" {
		modes = append(modes, redisMode{
			name: "cluster",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClusterClient(&redis.ClusterOptions{Addrs: splitAddrs(addrs)})
				ping(t, rdb, "Redis cluster")
				return rdb, func() { _ = rdb.Close() }
			},
		})
	}

	if addrs := os.Getenv("REDIS_SENTINEL_ADDRS"); addrs != "" {
		master := os.Getenv("REDIS_SENTINEL_MASTER")
		if master == "" {
			master = "mymaster"
		}
		modes = append(modes, redisMode{
			name: "sentinel",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewFailoverClient(&redis.FailoverOptions{
					MasterName:    master,
					SentinelAddrs: splitAddrs(addrs),
				})
				ping(t, rdb, "Redis sentinel")
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}

	return modes
}

func ping(t *testing.T, rdb redis.UniversalClient, what string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("cannot connect to %s: %v", what, err)
	}
}

func splitAddrs(s string) []string {
	var addrs []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

// newClient builds a client with a unique login per test so that runs
// against a shared Redis never collide on fingerprints.
func newClient(t *testing.T, tr *soaptest.Transport, rdb redis.UniversalClient, mutate func(*goSoap.Config)) *goSoap.Client {
	t.Helper()
	cfg := goSoap.DefaultConfig()
	cfg.Session.CookieDir = t.TempDir()
	cfg.Session.LockTimeout = 5 * time.Second
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}

	b := goSoap.New().
		WithConfig(cfg).
		WithCredentials(goSoap.Credentials{
			Login:    "it-" + t.Name(),
			Password: "integration",
			Endpoint: "https://crm.example.com/soap",
		}).
		WithTransport(tr)
	if rdb != nil {
		b.WithRedis(rdb)
	}
	client, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func newClientInDir(t *testing.T, tr *soaptest.Transport, dir string) *goSoap.Client {
	t.Helper()
	return newClient(t, tr, nil, func(cfg *goSoap.Config) { cfg.Session.CookieDir = dir })
}
