// Command gosoap-loadtest drives many goSoap clients that share one Redis
// against a simulated service, and reports call latency together with the
// session counters the clients recorded.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	goSoap "github.com/MrEthical07/goSoap"
	"github.com/MrEthical07/goSoap/soaptest"
	"github.com/MrEthical07/goSoap/wire"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type options struct {
	identities  int
	clients     int
	workers     int
	calls       int
	expireEvery int64
	redisAddr   string
	prefix      string
	verbose     bool
}

func main() {
	var o options
	flag.IntVar(&o.identities, "identities", 50, "distinct service logins")
	flag.IntVar(&o.clients, "clients", 4, "clients per login, sharing its cookie jar")
	flag.IntVar(&o.workers, "workers", 64, "concurrent callers")
	flag.IntVar(&o.calls, "calls", 20000, "total calls")
	flag.Int64Var(&o.expireEvery, "expire-every", 500, "expire the session on every n-th call; 0 never expires")
	flag.StringVar(&o.redisAddr, "redis-addr", "", "redis address; REDIS_ADDR or an embedded miniredis when empty")
	flag.StringVar(&o.prefix, "prefix", "gs-loadtest", "redis key prefix")
	flag.BoolVar(&o.verbose, "v", false, "log client activity to stderr")
	flag.Parse()

	if o.identities <= 0 || o.clients <= 0 || o.workers <= 0 || o.calls <= 0 {
		fmt.Fprintln(os.Stderr, "identities, clients, workers and calls must be > 0")
		os.Exit(2)
	}
	if err := run(context.Background(), o); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options) error {
	rdb, closeRedis, err := connect(o.redisAddr)
	if err != nil {
		return err
	}
	defer closeRedis()

	logger := zerolog.Nop()
	if o.verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	svc := newService(o.expireEvery)
	clients := make([]*goSoap.Client, 0, o.identities*o.clients)
	defer func() {
		for _, c := range clients {
			c.Close()
		}
	}()

	cfg := goSoap.DefaultConfig()
	cfg.Session.RedisPrefix = o.prefix
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	start := time.Now()
	for id := 0; id < o.identities; id++ {
		for n := 0; n < o.clients; n++ {
			c, err := goSoap.New().
				WithConfig(cfg).
				WithCredentials(goSoap.Credentials{
					Login:    "user-" + strconv.Itoa(id),
					Password: "loadtest",
					Endpoint: "https://loadtest.invalid/soap",
				}).
				WithTransport(svc.transport()).
				WithRedis(rdb).
				WithLogger(logger).
				BuildAndConnect(ctx)
			if err != nil {
				return fmt.Errorf("connect user-%d: %w", id, err)
			}
			clients = append(clients, c)
		}
	}
	fmt.Printf("connected %d clients in %s (%d logins)\n",
		len(clients), time.Since(start).Round(time.Millisecond), svc.logins.Load())

	res := drive(o.calls, o.workers, func(r *rand.Rand, i int) error {
		c := clients[r.Intn(len(clients))]
		_, err := c.Call(ctx, "echo", map[string]any{"seq": i})
		return err
	})

	fmt.Println("---- results ----")
	res.print("call")
	fmt.Printf("service: logins=%d expiries=%d\n", svc.logins.Load(), svc.expiries.Load())
	printCounters(clients)
	return nil
}

func connect(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return rdb, func() { _ = rdb.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}, nil
}

// service simulates the remote endpoint. Sessions are valid until the
// expiry cadence invalidates them; every login mints a new cookie value.
type service struct {
	expireEvery int64
	calls       atomic.Int64
	logins      atomic.Int64
	expiries    atomic.Int64
}

func newService(expireEvery int64) *service {
	return &service{expireEvery: expireEvery}
}

// transport returns a fresh Transport, since each client owns its cookies.
func (s *service) transport() *soaptest.Transport {
	return soaptest.New().
		Handle("login", func(context.Context, wire.Value) soaptest.Reply {
			n := s.logins.Add(1)
			return soaptest.LoginOK("SESSID=" + strconv.FormatInt(n, 36))
		}).
		Handle("echo", func(_ context.Context, params wire.Value) soaptest.Reply {
			n := s.calls.Add(1)
			if s.expireEvery > 0 && n%s.expireEvery == 0 {
				s.expiries.Add(1)
				return soaptest.Fault(goSoap.DefaultConfig().Session.ExpiredFault)
			}
			return soaptest.Ok(params)
		})
}

type result struct {
	elapsed  time.Duration
	samples  []time.Duration
	failures int64
}

// drive runs total invocations of op spread over workers. Each worker keeps
// its own samples; they are merged once every worker is done.
func drive(total, workers int, op func(r *rand.Rand, i int) error) result {
	var (
		wg       sync.WaitGroup
		next     atomic.Int64
		failures atomic.Int64
		perWork  = make([][]time.Duration, workers)
	)

	start := time.Now()
	for w := range perWork {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(int64(w) + 1))
			for {
				i := int(next.Add(1) - 1)
				if i >= total {
					return
				}
				t0 := time.Now()
				if err := op(r, i); err != nil {
					failures.Add(1)
				}
				perWork[w] = append(perWork[w], time.Since(t0))
			}
		}(w)
	}
	wg.Wait()

	res := result{elapsed: time.Since(start), failures: failures.Load()}
	for _, s := range perWork {
		res.samples = append(res.samples, s...)
	}
	slices.Sort(res.samples)
	return res
}

func (r result) quantile(q float64) time.Duration {
	if len(r.samples) == 0 {
		return 0
	}
	return r.samples[int(q*float64(len(r.samples)-1))]
}

func (r result) print(name string) {
	rate := 0.0
	if r.elapsed > 0 {
		rate = float64(len(r.samples)) / r.elapsed.Seconds()
	}
	fmt.Printf("%s: n=%d failures=%d elapsed=%s rate=%.0f/s p50=%s p95=%s p99=%s\n",
		name, len(r.samples), r.failures, r.elapsed.Round(time.Millisecond), rate,
		r.quantile(0.50).Round(time.Microsecond),
		r.quantile(0.95).Round(time.Microsecond),
		r.quantile(0.99).Round(time.Microsecond))
}

func printCounters(clients []*goSoap.Client) {
	names := []struct {
		id   goSoap.MetricID
		name string
	}{
		{goSoap.MetricCallSuccess, "call_success"},
		{goSoap.MetricSessionExpired, "session_expired"},
		{goSoap.MetricReauthSuccess, "reauth_success"},
		{goSoap.MetricRetryExhausted, "retry_exhausted"},
		{goSoap.MetricLoginSuccess, "login_success"},
		{goSoap.MetricCookieLoaded, "cookie_loaded"},
		{goSoap.MetricCookiePersisted, "cookie_persisted"},
	}
	totals := make(map[goSoap.MetricID]uint64, len(names))
	for _, c := range clients {
		for id, v := range c.MetricsSnapshot().Counters {
			totals[id] += v
		}
	}
	for _, n := range names {
		fmt.Printf("%s=%d ", n.name, totals[n.id])
	}
	fmt.Println()
}
