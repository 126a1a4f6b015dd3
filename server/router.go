package server

import (
	"context"
	"errors"
	"net/http"
	"storefront/core"
	"storefront/handlers/api/stores"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Feed is the change feed the router mounts under /socket.io/.
type Feed interface {
	core.StorePublisher
	Handler() http.Handler
}

func NewRouter(repo core.StoreRepository, feed Feed) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  logrus.StandardLogger(),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-Requested-With", "X-Request-Id"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Get("/", stores.HandleList(repo))
	r.Post("/", stores.HandleCreate(repo, feed))
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", stores.HandleGet(repo))
		r.Put("/", stores.HandleUpdate(repo, feed))
		r.Delete("/", stores.HandleDelete(repo, feed))
	})

	r.With(withoutDeadlines).Handle("/socket.io/", feed.Handler())
	return r
}

// withoutDeadlines lifts the server read and write timeouts for the
// connection. Long-polls are held until the next ping and websocket
// upgrades keep the connection past any request timeout.
func withoutDeadlines(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		for _, set := range []func(time.Time) error{rc.SetReadDeadline, rc.SetWriteDeadline} {
			if err := set(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
				logrus.WithField("error", err).Warn("Failed to clear feed connection deadline")
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requestID tags each request with a ULID unless the caller sent an id.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
