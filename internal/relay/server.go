// internal/relay/server.go
package relay

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/practiceops/smsbridge-backend/internal/config"
	"github.com/practiceops/smsbridge-backend/internal/dispatch"
	"github.com/practiceops/smsbridge-backend/internal/model"
)

// Sender is satisfied by dispatch.Dispatcher.
type Sender interface {
	Send(msg *model.OutboundMessage, mode dispatch.Mode) bool
}

// StatusReader is satisfied by phone.Monitor.
type StatusReader interface {
	IsUsable() bool
}

// Server exposes the bridge machine's SMS capability to the rest of the
// practice network. It always dispatches in Direct mode: the relay server is
// the bridge machine.
type Server struct {
	cfg    *config.Config
	sender Sender
	status StatusReader
	http   *http.Server
}

func NewServer(cfg *config.Config, sender Sender, status StatusReader) *Server {
	s := &Server{cfg: cfg, sender: sender, status: status}
	s.http = &http.Server{
		Addr:    ":" + cfg.RelayPort,
		Handler: s.Router(),
	}
	return s
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.handleLiveness)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Get("/smsStatus", s.handleStatus)
		r.Post("/sendSms", s.handleSendSms)
	})

	return r
}

// Start blocks serving until Shutdown; net/http runs one goroutine per
// connection, so a slow request never blocks the accept loop.
func (s *Server) Start() error {
	log.Println("🚀 SMS relay listening on", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting new requests without aborting in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// requireAPIKey compares the shared secret byte-for-byte on every protected
// route; anything else is rejected before it is processed.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("ApiKey") != s.cfg.APIKey {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("running"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if s.status != nil && s.status.IsUsable() {
		w.Write([]byte("connected"))
		return
	}
	w.Write([]byte("unavailable"))
}

func (s *Server) handleSendSms(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	phoneNumber := r.PostFormValue("phoneNumber")
	message := r.PostFormValue("message")
	if phoneNumber == "" || message == "" {
		http.Error(w, "Missing phone number or message", http.StatusBadRequest)
		return
	}

	msg := &model.OutboundMessage{
		Destination: phoneNumber,
		Body:        message,
		Class:       model.ClassAdhoc,
		Status:      model.SendPending,
	}
	if !s.sender.Send(msg, dispatch.ModeDirect) {
		http.Error(w, "failed to send SMS", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("sent"))
}
