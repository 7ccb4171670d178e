package goSoap_test

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	goSoap "github.com/MrEthical07/goSoap"
	"github.com/MrEthical07/goSoap/codec"
	"github.com/MrEthical07/goSoap/soaptest"
	"github.com/MrEthical07/goSoap/wire"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func buildRedisClient(t *testing.T, tr *soaptest.Transport, cfg goSoap.Config, rdb redis.UniversalClient) *goSoap.Client {
	t.Helper()
	return buildClient(t, tr, cfg, func(b *goSoap.Builder) { b.WithRedis(rdb) })
}

func TestLoginThrottleTrips(t *testing.T) {
	_, rdb := newTestRedis(t)
	tr := soaptest.New().Handle("login", func(context.Context, wire.Value) soaptest.Reply {
		return soaptest.LoginOK("sid=abc")
	})
	cfg := testConfig(t)
	cfg.Session.MaxLoginsPerWindow = 1
	client := buildRedisClient(t, tr, cfg, rdb)

	if err := client.EnsureSession(context.Background(), true); err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	err := client.EnsureSession(context.Background(), true)
	if !errors.Is(err, goSoap.ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
	var authErr *goSoap.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T", err)
	}
	if n := tr.CallCount("login"); n != 1 {
		t.Fatalf("throttled login reached the transport: %d logins", n)
	}
	if n := client.MetricsSnapshot().Counters[goSoap.MetricLoginRateLimited]; n != 1 {
		t.Fatalf("expected 1 rate limited login, got %d", n)
	}
}

func TestRedisJarSharedBetweenClients(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig(t)

	trA := soaptest.New().Enqueue("login", soaptest.LoginOK("sid=a", "lang=en"))
	a := buildRedisClient(t, trA, cfg, rdb)
	if err := a.EnsureSession(context.Background(), false); err != nil {
		t.Fatalf("client A login failed: %v", err)
	}

	trB := soaptest.New()
	b := buildRedisClient(t, trB, cfg, rdb)
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("same identity must share a fingerprint")
	}
	if err := b.EnsureSession(context.Background(), false); err != nil {
		t.Fatalf("client B restore failed: %v", err)
	}
	if len(trB.Calls()) != 0 {
		t.Fatal("client B logged in instead of reusing the shared jar")
	}
	if got := trB.Cookies(); got["sid"] != "a" || got["lang"] != "en" {
		t.Fatalf("unexpected cookies on B: %v", got)
	}
}

func TestReauthenticationAdoptsJarRefreshedElsewhere(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig(t)

	trA := soaptest.New().Enqueue("login", soaptest.LoginOK("sid=a1"), soaptest.LoginOK("sid=a2"))
	a := buildRedisClient(t, trA, cfg, rdb)
	if err := a.EnsureSession(context.Background(), false); err != nil {
		t.Fatalf("client A login failed: %v", err)
	}

	trB := soaptest.New().Enqueue("getProfile",
		soaptest.Fault(expiredFault),
		soaptest.Ok(wire.NewRecord(wire.F("value", wire.Int(1)))),
	)
	b := buildRedisClient(t, trB, cfg, rdb)
	if err := b.EnsureSession(context.Background(), false); err != nil {
		t.Fatalf("client B restore failed: %v", err)
	}

	// A refreshes the shared session; B still carries sid=a1.
	if err := a.EnsureSession(context.Background(), true); err != nil {
		t.Fatalf("client A refresh failed: %v", err)
	}

	got, err := b.Call(context.Background(), "getProfile", nil)
	if err != nil {
		t.Fatalf("client B call failed: %v", err)
	}
	if got != int64(1) {
		t.Fatalf("unexpected result %#v", got)
	}
	if n := trB.CallCount("login"); n != 0 {
		t.Fatalf("client B logged in %d times instead of adopting", n)
	}
	if sid := trB.Cookies()["sid"]; sid != "a2" {
		t.Fatalf("client B retried with sid=%q", sid)
	}
	if n := trA.CallCount("login"); n != 2 {
		t.Fatalf("expected 2 logins on A, got %d", n)
	}
}

func TestConcurrentForcedLoginsSerialize(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig(t)
	cfg.Session.LockTimeout = 5 * time.Second

	var (
		mu     sync.Mutex
		active int
		peak   int
	)
	handler := func(context.Context, wire.Value) soaptest.Reply {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()
		defer func() {
			mu.Lock()
			active--
			mu.Unlock()
		}()
		return soaptest.LoginOK("sid=x")
	}

	clients := make([]*goSoap.Client, 4)
	for i := range clients {
		tr := soaptest.New().Handle("login", handler)
		clients[i] = buildRedisClient(t, tr, cfg, rdb)
	}

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *goSoap.Client) {
			defer wg.Done()
			if err := c.EnsureSession(context.Background(), true); err != nil {
				t.Errorf("EnsureSession failed: %v", err)
			}
		}(c)
	}
	wg.Wait()

	if peak != 1 {
		t.Fatalf("expected logins to be serialized, peak concurrency %d", peak)
	}
}

func TestFileReauthenticationAdoptsPeerLogin(t *testing.T) {
	cfg := testConfig(t)

	trA := soaptest.New().Enqueue("login", soaptest.LoginOK("sid=a1"), soaptest.LoginOK("sid=a2"))
	a := buildClient(t, trA, cfg)
	if err := a.EnsureSession(context.Background(), false); err != nil {
		t.Fatalf("client A login failed: %v", err)
	}

	trB := soaptest.New().Enqueue("getProfile",
		soaptest.Fault(expiredFault),
		soaptest.Ok(wire.NewRecord(wire.F("value", wire.String("ok")))),
	)
	b := buildClient(t, trB, cfg)
	if err := b.EnsureSession(context.Background(), false); err != nil {
		t.Fatalf("client B restore failed: %v", err)
	}
	if err := a.EnsureSession(context.Background(), true); err != nil {
		t.Fatalf("client A refresh failed: %v", err)
	}

	if _, err := b.Call(context.Background(), "getProfile", nil); err != nil {
		t.Fatalf("client B call failed: %v", err)
	}
	if trB.CallCount("login") != 0 || trB.Cookies()["sid"] != "a2" {
		t.Fatalf("client B did not adopt: logins=%d cookies=%v", trB.CallCount("login"), trB.Cookies())
	}
}

func TestForcedLoginDoesNotAdoptRejectedJar(t *testing.T) {
	cfg := testConfig(t)
	tr := soaptest.New()
	tr.Handle("login", func(context.Context, wire.Value) soaptest.Reply {
		return soaptest.LoginOK("sid=new")
	})
	tr.Handle("getProfile", func(context.Context, wire.Value) soaptest.Reply {
		if tr.Cookies()["sid"] != "new" {
			return soaptest.Fault(expiredFault)
		}
		return soaptest.Ok(wire.NewRecord(wire.F("name", wire.String("Ed"))))
	})
	client := buildClient(t, tr, cfg)
	persistJar(t, cfg, client, "sid=old")

	// No EnsureSession: the client has installed nothing when the call expires.
	got, err := client.Call(context.Background(), "getProfile", nil)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if !reflect.DeepEqual(got, codec.Object{"name": "Ed"}) {
		t.Fatalf("unexpected result %#v", got)
	}
	if n := tr.CallCount("login"); n != 1 {
		t.Fatalf("expected one login, got %d", n)
	}
	if n := tr.CallCount("getProfile"); n != 2 {
		t.Fatalf("expected 2 attempts, got %d", n)
	}
}

func TestForcedLoginWithoutInstalledJarLogsIn(t *testing.T) {
	cfg := testConfig(t)
	tr := soaptest.New().Enqueue("login", soaptest.LoginOK("sid=fresh"))
	client := buildClient(t, tr, cfg)
	persistJar(t, cfg, client, "sid=old")

	if err := client.EnsureSession(context.Background(), true); err != nil {
		t.Fatalf("EnsureSession failed: %v", err)
	}
	if n := tr.CallCount("login"); n != 1 {
		t.Fatalf("forced login skipped the login call: %d logins", n)
	}
	if sid := tr.Cookies()["sid"]; sid != "fresh" {
		t.Fatalf("expected sid=fresh installed, got %q", sid)
	}
}

func TestLoginLogsDroppedSetCookieTokens(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig(t)
	tr := soaptest.New().Enqueue("login", soaptest.LoginOK("sid=abc", "opaque-secret"))
	client := buildClient(t, tr, cfg, func(b *goSoap.Builder) {
		b.WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
	})

	if err := client.EnsureSession(context.Background(), false); err != nil {
		t.Fatalf("EnsureSession failed: %v", err)
	}
	if names := client.InstalledCookies(); len(names) != 1 || names[0] != "sid" {
		t.Fatalf("unexpected installed cookies %v", names)
	}
	out := buf.String()
	if !strings.Contains(out, "set-cookie token is not name=value, dropped") {
		t.Fatalf("dropped token not logged:\n%s", out)
	}
	if strings.Contains(out, "opaque-secret") {
		t.Fatalf("token value leaked into logs:\n%s", out)
	}
}
