package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/logging"
	"github.com/gorilla/mux"
)

// Paths served by NewRouter.
const (
	ClaimDataPath = "/claim-data"
	WSPath        = "/bridge/ws"
)

// NewRouter exposes the hub over HTTP.
func NewRouter(h *Hub) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(ClaimDataPath, h.handleClaimData).Methods(http.MethodGet)
	r.HandleFunc(WSPath, h.ServeWS)
	return r
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Hub) handleClaimData(w http.ResponseWriter, r *http.Request) {
	data, err := h.Request(r.Context())
	if err != nil {
		code := ErrNoData.Error()
		switch {
		case errors.Is(err, ErrNoClient):
			code = ErrNoClient.Error()
		case errors.Is(err, ErrTimeout), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			code = ErrTimeout.Error()
		}
		sendJSON(w, http.StatusInternalServerError, errorBody{Error: code})
		return
	}
	sendJSON(w, http.StatusOK, data)
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Server runs the bridge endpoint.
type Server struct {
	address string
	hub     *Hub
	log     logging.Logger
}

func NewServer(address string, hub *Hub, log logging.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	return &Server{address: address, hub: hub, log: log.With("module", "bridge_server")}
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           NewRouter(s.hub),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info(ctx, "Stopping bridge server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info(ctx, "Starting bridge server", "address", listen.Addr().String())
	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
