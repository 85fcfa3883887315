// loadgen is a tiny, dependency-free HTTP load generator tailored to the
// analytics gateway. It reuses HTTP connections (keep-alive) and supports
// concurrency so a single process can exercise the fills cache and rate
// limiter under realistic concurrent load (spec.md §8 S6: ten concurrent
// requests for the same window should collapse to one upstream fetch).
//
// Modes:
//   - single: hammer one user/window repeatedly (cache-stampede scenario)
//   - round-robin: spread requests across a pool of synthetic users
//
// Usage examples:
//
//	loadgen -base=http://127.0.0.1:8080 -mode=single -user=0xabc... -n=5000 -c=16
//	loadgen -base=http://127.0.0.1:8080 -mode=round-robin -users=20 -n=8000 -c=16
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type modeType string

const (
	modeSingle     modeType = "single"
	modeRoundRobin modeType = "round-robin"
)

func syntheticUser(i int) string {
	return fmt.Sprintf("0x%040x", i+1)
}

func main() {
	var (
		base  = flag.String("base", "http://127.0.0.1:8080", "Base URL including scheme and host")
		path  = flag.String("path", "/v1/trades", "Request path (e.g., /v1/trades, /v1/positions/history, /v1/pnl)")
		modeS = flag.String("mode", string(modeSingle), "Mode: single|round-robin")
		user  = flag.String("user", "0x1111111111111111111111111111111111111111", "User address for single mode")
		users = flag.Int("users", 20, "Number of synthetic users to round-robin across")
		n     = flag.Int("n", 5000, "Total requests to send")
		conc  = flag.Int("c", 8, "Number of concurrent workers")

		timeout    = flag.Duration("timeout", 30*time.Second, "Overall timeout for the run")
		connIdle   = flag.Duration("idle_timeout", 30*time.Second, "HTTP idle connection timeout")
		maxIdle    = flag.Int("max_idle", 256, "Max idle connections total")
		maxIdlePer = flag.Int("max_idle_per_host", 256, "Max idle connections per host")
	)
	flag.Parse()

	m := modeType(strings.ToLower(*modeS))
	if m != modeSingle && m != modeRoundRobin {
		fmt.Fprintf(os.Stderr, "unknown -mode=%s (want single|round-robin)\n", *modeS)
		os.Exit(2)
	}
	if *n <= 0 || *conc <= 0 {
		fmt.Fprintln(os.Stderr, "-n and -c must be > 0")
		os.Exit(2)
	}

	baseURL := strings.TrimRight(*base, "/")
	p := *path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	fullPath := baseURL + p

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        *maxIdle,
		MaxIdleConnsPerHost: *maxIdlePer,
		IdleConnTimeout:     *connIdle,
	}
	client := &http.Client{Transport: tr, Timeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	var done, failed int64

	worker := func(id, count int) {
		defer atomic.AddInt64(&done, int64(count))
		for i := 0; i < count; i++ {
			select {
			case <-ctx.Done():
				return
			default:
			}
			var u string
			if m == modeSingle {
				u = *user
			} else {
				u = syntheticUser((i + id) % *users)
			}
			reqURL := fullPath + "?" + url.Values{"user": {u}}.Encode()
			req, _ := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			resp, err := client.Do(req)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				time.Sleep(200 * time.Microsecond)
				continue
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			if resp.StatusCode >= 400 {
				atomic.AddInt64(&failed, 1)
			}
		}
	}

	per := *n / *conc
	rem := *n - per**conc
	var wg sync.WaitGroup
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		count := per
		if w == *conc-1 {
			count += rem
		}
		go func(id, count int) {
			defer wg.Done()
			worker(id, count)
		}(w, count)
	}
	wg.Wait()

	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	ops := float64(*n) / elapsed.Seconds()
	fmt.Printf("LoadGen: mode=%s n=%d c=%d go=%d duration=%s throughput=%.0f req/s failed=%d\n",
		m, *n, *conc, runtime.GOMAXPROCS(0), elapsed.Truncate(time.Millisecond), ops, failed)
}
