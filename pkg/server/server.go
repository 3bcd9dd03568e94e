package server

import (
	"context"
	"encoding/json"
	"net/http"

	"zaprelay/pkg/logger"
)

// MessageSender is the slice of the session supervisor the send endpoint
// needs: a connectivity check and one validated send call.
type MessageSender interface {
	Connected() bool
	Send(ctx context.Context, phone, message string) error
}

// Server exposes the outbound send endpoint and health probes. The inbound
// pipeline has no HTTP surface; its only observable output is the webhook.
type Server struct {
	server *http.Server
	addr   string
	sender MessageSender
}

func NewServer(addr string, sender MessageSender) *Server {
	return &Server{
		addr:   addr,
		sender: sender,
	}
}

// Handler builds the route table. Split out from Start so tests can drive
// the routes through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHealth)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/send", s.handleSend)
	return mux
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	logger.InfoCF("server", "Starting HTTP server", map[string]interface{}{
		"addr": s.addr,
	})

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("server", "HTTP server failed", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		logger.InfoC("server", "Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type sendResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// handleSend accepts GET with query parameters or POST with a JSON body,
// matching the contract the automation side already speaks.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest

	switch r.Method {
	case http.MethodGet:
		req.Phone = r.URL.Query().Get("phone")
		req.Message = r.URL.Query().Get("message")

	case http.MethodPost:
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil {
			logger.WarnCF("server", "Invalid JSON body on /send", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
			writeJSON(w, http.StatusBadRequest, sendResponse{Error: "invalid JSON body"})
			return
		}

	default:
		writeJSON(w, http.StatusMethodNotAllowed, sendResponse{Error: "method not allowed"})
		return
	}

	if req.Phone == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, sendResponse{Error: "phone and message are required"})
		return
	}

	if s.sender == nil || !s.sender.Connected() {
		writeJSON(w, http.StatusServiceUnavailable, sendResponse{Error: "session not established"})
		return
	}

	if err := s.sender.Send(r.Context(), req.Phone, req.Message); err != nil {
		logger.ErrorCF("server", "Send failed", map[string]interface{}{
			logger.FieldSenderID: req.Phone,
			logger.FieldError:    err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, sendResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, sendResponse{Success: true})
}

func writeJSON(w http.ResponseWriter, status int, body sendResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
