package main

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

// ipRateLimiter hands out a token-bucket limiter per client IP so one address
// cannot churn connections.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	seen     map[string]time.Time
}

func newIPRateLimiter() *ipRateLimiter {
	rl := &ipRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		seen:     make(map[string]time.Time),
	}
	// Drop limiters for IPs not seen in a while
	go func() {
		for range time.Tick(60 * time.Second) {
			rl.mu.Lock()
			cutoff := time.Now().Add(-5 * time.Minute)
			for ip, t := range rl.seen {
				if t.Before(cutoff) {
					delete(rl.seen, ip)
					delete(rl.limiters, ip)
				}
			}
			rl.mu.Unlock()
		}
	}()
	return rl
}

// allow reports whether this IP may connect right now.
func (rl *ipRateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	lim, ok := rl.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(rate.Every(IPConnectCooldown), IPConnectBurst)
		rl.limiters[ip] = lim
	}
	rl.seen[ip] = time.Now()
	return lim.Allow()
}

// newUpgrader builds a websocket upgrader that accepts same-origin,
// localhost, and any origin listed in ALLOWED_ORIGINS.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   4096,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser client
			}
			originURL, err := url.Parse(origin)
			if err != nil {
				return false
			}
			if r.Host == originURL.Host {
				return true
			}
			host := originURL.Host
			if strings.HasPrefix(host, "localhost") || strings.HasPrefix(host, "127.0.0.1") {
				return true
			}
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			log.Printf("rejected websocket origin: %s", origin)
			return false
		},
	}
}

// clientIP extracts the client address, honoring X-Forwarded-For behind a
// reverse proxy.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	ip, _, _ := net.SplitHostPort(r.RemoteAddr)
	return ip
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file, using process environment")
	}

	port := envOr("PORT", DefaultPort)
	var allowedOrigins []string
	for _, o := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowedOrigins = append(allowedOrigins, o)
		}
	}

	var wallet Wallet
	if walletURL := os.Getenv("WALLET_API_URL"); walletURL != "" {
		wallet = NewHTTPWallet(walletURL)
		log.Printf("wallet collaborator at %s", walletURL)
	} else {
		log.Printf("no WALLET_API_URL set, bets are free play")
	}

	server := NewServer(wallet)
	loop := NewGameLoop(server)
	rateLimiter := newIPRateLimiter()
	upgrader := newUpgrader(allowedOrigins)

	mux := http.NewServeMux()

	mux.HandleFunc(WebSocketPath, func(w http.ResponseWriter, r *http.Request) {
		if !rateLimiter.allow(clientIP(r)) {
			http.Error(w, "too many connections", http.StatusTooManyRequests)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("ws upgrade error: %v", err)
			return
		}
		ws.EnableWriteCompression(true)

		conn := NewConn(ws)
		server.HandleConnect(conn)
		conn.ReadLoop(server)
	})

	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "ok",
			Uptime: server.Uptime().Seconds(),
		})
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go loop.Run()

	go func() {
		log.Printf("server listening on :%s (arena r=%.0f, %d ticks/sec)", port, ArenaRadius, TickRate)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("shutting down (signal: %v)", sig)

	loop.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Printf("server stopped")
}
