package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/pnordin/chatrelay/internal/api"
	"github.com/pnordin/chatrelay/internal/config"
	"github.com/pnordin/chatrelay/internal/database"
	"github.com/pnordin/chatrelay/internal/server"
	"github.com/pnordin/chatrelay/internal/stats"
	"github.com/pnordin/chatrelay/internal/upload"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	uploadBaseURL  string
	uploadSecret   string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.StringVar(&uploadBaseURL, "upload-base-url", "", "base URL of the file store accepting presigned uploads")
	flag.StringVar(&uploadSecret, "upload-secret", "", "base64 encoded upload signing secret")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[chatrelay] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, uploadBaseURL, uploadSecret, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := dbConn.Migrate(); err != nil {
		logger.Fatal("db migrate:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	gateway := server.NewGateway(logger, statsUpdater)
	relayHandlers := server.Handlers{
		Lifecycle:  server.NewConnectionHandler(logger, dbConn),
		Dispatcher: server.NewDispatcher(logger, dbConn, gateway, statsUpdater),
		Receipts:   server.NewReceiptHandler(logger, dbConn, statsUpdater),
	}

	var signer *upload.Signer
	if len(cfg.UploadSecret) > 0 && cfg.UploadBaseURL != "" {
		signer = upload.NewSigner(cfg.UploadBaseURL, cfg.UploadSecret)
	}

	srv := api.NewChatRelayApp(mux, logger, gateway, relayHandlers, dbConn, signer, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down gateway...")
	if err := gateway.Shutdown(shutDownCtx); err != nil {
		logger.Println("gateway shutdown:", err)
	}

	logger.Println("shutdown complete")
}
