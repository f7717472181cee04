// Command server runs the local VoiceFit development analysis server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/himanishpuri/VoiceFit/internal/server"
	"github.com/himanishpuri/VoiceFit/pkg/logger"
)

var (
	port           int
	allowedOrigins string
	maxUpload      int64
	minDuration    float64
	logRequests    bool
)

func init() {
	defaultPort, err := strconv.Atoi(getEnvOrDefault("VOICEFIT_SERVER_PORT", strconv.Itoa(server.DefaultPort)))
	if err != nil {
		defaultPort = server.DefaultPort
	}
	flag.IntVar(&port, "port", defaultPort, "HTTP server port")
	flag.StringVar(&allowedOrigins, "origins", getEnvOrDefault("VOICEFIT_ALLOWED_ORIGINS", "*"), "Comma-separated list of allowed CORS origins (use * for all)")
	flag.Int64Var(&maxUpload, "max-upload", server.DefaultMaxUploadBytes, "Largest accepted upload in bytes")
	flag.Float64Var(&minDuration, "min-duration", server.DefaultMinDuration, "Shortest accepted sample in seconds")
	flag.BoolVar(&logRequests, "log-requests", false, "Log every request")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseOrigins(s string) []string {
	if s == "*" {
		return []string{"*"}
	}
	origins := strings.Split(s, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	srv := server.New(server.Config{
		Port:           port,
		AllowedOrigins: parseOrigins(allowedOrigins),
		MaxUploadBytes: maxUpload,
		MinDuration:    minDuration,
		LogRequests:    logRequests,
		Logger:         log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
