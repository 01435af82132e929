package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/pnordin/chatrelay/internal/config"
	"github.com/pnordin/chatrelay/internal/database"
	"github.com/pnordin/chatrelay/internal/server"
	"github.com/pnordin/chatrelay/internal/upload"
)

// ChatRelayApp is the HTTP surface: the REST collaborators (auth, rooms,
// history, profiles, uploads) and the websocket upgrade endpoint feeding
// the relay core.
type ChatRelayApp struct {
	log            *log.Logger
	db             database.ChatRepository
	mux            *http.Server
	gateway        *server.Gateway
	handlers       server.Handlers
	signer         *upload.Signer
	signingKey     []byte
	allowedOrigins []string
}

func NewChatRelayApp(mux *http.ServeMux, logger *log.Logger, gw *server.Gateway, hs server.Handlers,
	db database.ChatRepository, signer *upload.Signer, cfg *config.Config) *ChatRelayApp {
	s := &ChatRelayApp{
		log:            logger,
		db:             db,
		gateway:        gw,
		handlers:       hs,
		signer:         signer,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.Handle("GET /api/rooms", s.authMiddleware(s.listRooms))
	mux.Handle("GET /api/rooms/{roomId}", s.authMiddleware(s.getRoom))
	mux.Handle("DELETE /api/rooms/{roomId}", s.authMiddleware(s.deleteRoom))
	mux.Handle("GET /api/rooms/{roomId}/messages", s.authMiddleware(s.getChatHistory))
	mux.Handle("GET /api/rooms/{roomId}/receipts", s.authMiddleware(s.getReadReceipts))
	mux.Handle("GET /api/users/{userId}", s.authMiddleware(s.getUserProfile))
	mux.Handle("PUT /api/users/{userId}", s.authMiddleware(s.updateUserProfile))
	mux.Handle("POST /api/uploads", s.authMiddleware(s.createUploadURL))
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *ChatRelayApp) Start() error {
	s.log.Printf("Starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ChatRelayApp) Shutdown(ctx context.Context) error {
	s.log.Println("Shutting down server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.log.Println("Server shutdown complete")
	return nil
}
