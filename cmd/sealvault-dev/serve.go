package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/sealvault/sealvault-core/app"
	"github.com/sealvault/sealvault-core/provider"
)

// maxDevRequestBytes caps request bodies before they reach the bridge,
// which enforces its own tighter limit.
const maxDevRequestBytes = 4 << 20

func newServeCmd() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP dev bridge",
		RunE: func(cmd *cobra.Command, _ []string) error {
			callbacks := provider.NewMockCallbacks(true)
			server := &http.Server{
				Addr:    listenAddr,
				Handler: newDevHandler(core, callbacks, pageURL, logger),
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
			}()

			logger.Info("dev bridge listening",
				slog.String("addr", listenAddr),
				slog.String("page_url", pageURL),
			)
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", ":8123", "listen address")
	return cmd
}

// newDevHandler routes page traffic into the bridge. All requests act as the
// configured page URL and approvals are auto-accepted.
func newDevHandler(core *app.Core, callbacks *provider.MockCallbacks, pageURL string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	reqCtx := provider.InPageRequestContext{
		PageURL:   pageURL,
		Callbacks: callbacks,
	}

	r.Post("/in-page-request", func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxDevRequestBytes))
		if err != nil {
			http.Error(w, "read request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		responseHex, err := core.InPageRequest(req.Context(), reqCtx, string(body))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, responseHex)
	})

	r.Get("/in-page-provider.js", func(w http.ResponseWriter, _ *http.Request) {
		script, err := core.LoadInPageProviderScript("sealVaultProvider", "sealVaultRequestHandler")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		_, _ = io.WriteString(w, script)
	})

	r.Get("/events", func(w http.ResponseWriter, _ *http.Request) {
		notifications := callbacks.Notifications()
		events := make([]devEvent, 0, len(notifications))
		for _, n := range notifications {
			events = append(events, devEvent{Event: string(n.Event), Data: n.Data})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(events)
	})

	return r
}

// devEvent is the wire shape of one recorded provider notification.
type devEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// requestLogger logs one line per request through the configured slog logger.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, req.ProtoMajor)
			next.ServeHTTP(ww, req)
			logger.Info("http request",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
