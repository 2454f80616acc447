package server

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/akolanti/RecallAPI/internal/adapter/utils"
	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/handlers"
	"github.com/akolanti/RecallAPI/internal/middleware"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	CloseServices    context.CancelFunc
}

// RegisterRoutes mounts the study API on r. mcp may be nil.
func RegisterRoutes(r chi.Router, h *handlers.Handler, mcp http.Handler) {
	r.Get("/", middleware.Wrap(h.GetHandler))
	r.Get("/status", middleware.Wrap(h.StatusHandler))
	r.Post("/upload", middleware.Wrap(h.UploadHandler))
	r.Post("/query", middleware.Wrap(h.QueryHandler))
	r.Post("/validate_answer", middleware.Wrap(h.ValidateAnswerHandler))
	r.Post("/forfeit", middleware.Wrap(h.ForfeitHandler))
	r.Delete("/documents/{id}", middleware.Wrap(h.DeleteDocumentHandler))
	r.Post("/reset", middleware.Wrap(h.ResetHandler))
	if mcp != nil {
		r.Handle("/mcp", mcp)
	}
}

// CreateServer blocks serving on listenAddr. It returns nil after a graceful shutdown.
func CreateServer(listenAddr string, h *handlers.Handler, mcp http.Handler) error {
	r := utils.GetRouter()
	RegisterRoutes(r.Router, h, mcp)

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", listenAddr)
		return err
	}
	return nil
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		if server != nil {
			server.SetKeepAlivesEnabled(false)
			if err := server.Shutdown(ctx); err != nil {
				_logger.Error("Could not shutdown gracefully", "error", err)
			}
		}
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully shut down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
