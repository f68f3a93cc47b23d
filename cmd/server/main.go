package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/newsletter/internal/api"
	"github.com/ignite/newsletter/internal/auth"
	"github.com/ignite/newsletter/internal/config"
	"github.com/ignite/newsletter/internal/mailing"
	"github.com/ignite/newsletter/internal/pkg/distlock"
	"github.com/ignite/newsletter/internal/repository/postgres"
	"github.com/ignite/newsletter/internal/service/dispatch"
	"github.com/ignite/newsletter/internal/service/sending"
	"github.com/ignite/newsletter/internal/service/subscription"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		log.Fatalf("%v", err)
	}

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("Database ping failed: %v", err)
	}
	pingCancel()
	log.Println("Database connected")

	// Redis is optional: when absent, dispatch locking falls back to PG
	// advisory locks.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Warning: Redis connection failed (%s): %v — falling back to PG advisory locks",
				cfg.Redis.Addr, err)
			redisClient.Close()
			redisClient = nil
		} else {
			log.Printf("Redis connected: %s (distributed dispatch locking enabled)", cfg.Redis.Addr)
		}
		pingCancel()
	} else {
		log.Println("Redis not configured — using PG advisory locks for dispatch locking")
	}

	sender, err := buildSender(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize email sender: %v", err)
	}

	repo := postgres.NewSubscriptionRepo(db)

	subs := subscription.NewService(repo, sender,
		cfg.Email.FromName, cfg.Email.FromEmail, cfg.Server.BaseURL)

	lockFactory := func() distlock.DistLock {
		return distlock.NewLock(redisClient, db, "newsletter-dispatch", cfg.Dispatch.LockTTL())
	}
	disp := dispatch.NewService(repo, sender,
		cfg.Email.FromName, cfg.Email.FromEmail, cfg.Dispatch.Concurrency, lockFactory)

	if cfg.Auth.OperatorToken == "" {
		log.Println("Warning: OPERATOR_TOKEN not set — POST /newsletters will reject all requests")
	}
	operator := auth.NewOperator(cfg.Auth.OperatorToken)

	handlers := api.NewHandlers(subs, disp, operator)
	health := api.NewHealthChecker(db, redisClient)
	server := api.NewServer(handlers, health)

	// Graceful shutdown on SIGINT/SIGTERM
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, cfg.Server.Port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}

	log.Println("Server stopped")
}

// buildSender selects the ESP client from config.
func buildSender(cfg *config.Config) (sending.Sender, error) {
	switch cfg.Email.Provider {
	case "postmark":
		if cfg.Email.ServerToken == "" {
			return nil, fmt.Errorf("POSTMARK_SERVER_TOKEN is required for the postmark provider")
		}
		return mailing.NewPostmarkClient(cfg.Email.BaseURL, cfg.Email.ServerToken, cfg.Email.Timeout()), nil
	case "ses":
		return mailing.NewSESClient(context.Background(),
			cfg.Email.SESRegion, cfg.Email.SESAccessKey, cfg.Email.SESSecretKey, cfg.Email.Timeout())
	default:
		return nil, fmt.Errorf("unknown email provider %q (want postmark or ses)", cfg.Email.Provider)
	}
}
