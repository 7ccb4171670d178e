package goSoap_test

import (
	"context"
	"os"
	"testing"
	"time"

	goSoap "github.com/MrEthical07/goSoap"
	"github.com/MrEthical07/goSoap/cookie"
	"github.com/MrEthical07/goSoap/soaptest"
	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const expiredFault = "Not logged on"

func testCredentials() goSoap.Credentials {
	return goSoap.Credentials{
		Login:    "ed",
		Password: "s3cret",
		Endpoint: "https://crm.example.com/soap",
	}
}

func testConfig(t *testing.T) goSoap.Config {
	t.Helper()
	cfg := goSoap.DefaultConfig()
	cfg.Session.CookieDir = t.TempDir()
	cfg.Session.LockTimeout = time.Second
	cfg.Metrics.Enabled = true
	return cfg
}

func buildClient(t *testing.T, tr *soaptest.Transport, cfg goSoap.Config, opts ...func(*goSoap.Builder)) *goSoap.Client {
	t.Helper()
	b := goSoap.New().
		WithConfig(cfg).
		WithCredentials(testCredentials()).
		WithTransport(tr)
	for _, opt := range opts {
		opt(b)
	}
	client, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

// persistJar writes tokens to the cookie file of client, as a previous
// process would have.
func persistJar(t *testing.T, cfg goSoap.Config, client *goSoap.Client, tokens ...string) string {
	t.Helper()
	store := cookie.NewFileStore(cfg.Session.CookieDir)
	jar := make(cookie.Jar, 0, len(tokens))
	for _, tok := range tokens {
		c, ok := cookie.ParseToken(tok)
		if !ok {
			t.Fatalf("bad token %q", tok)
		}
		jar = append(jar, c)
	}
	if err := store.Append(context.Background(), client.Fingerprint(), jar); err != nil {
		t.Fatalf("persist jar: %v", err)
	}
	return store.Path(client.Fingerprint())
}

func jarPath(cfg goSoap.Config, client *goSoap.Client) string {
	return cookie.NewFileStore(cfg.Session.CookieDir).Path(client.Fingerprint())
}

func readJarFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read jar: %v", err)
	}
	return string(data)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ed",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := token.SignedString([]byte("server-side-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}
