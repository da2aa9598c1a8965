// Package chi mounts the MiniSafe navigation surface on a chi router.
// All view logic stays in the http package; this package only decodes
// requests and writes responses.
package chi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/minisafe-go"
	httpminisafe "github.com/mark3labs/minisafe-go/http"
	"github.com/mark3labs/minisafe-go/http/internal/helpers"
)

// NewRouter returns a chi router serving every route in httpminisafe.Routes().
//
// Example usage:
//
//	h := httpminisafe.NewHandler(controller)
//	log.Fatal(http.ListenAndServe(":8080", chi.NewRouter(h)))
func NewRouter(h *httpminisafe.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(h.Logger()))
	Mount(r, h)
	return r
}

// Mount registers the routes on an existing router.
func Mount(r chi.Router, h *httpminisafe.Handler) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.Home(r.Context())
		helpers.Respond(w, resp, err)
	})

	r.Get("/pay", func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.Pay(r.Context())
		helpers.Respond(w, resp, err)
	})

	r.Post("/token", func(w http.ResponseWriter, r *http.Request) {
		var req httpminisafe.TokenRequest
		if err := helpers.DecodeJSON(r, &req); err != nil {
			helpers.WriteError(w, err)
			return
		}
		resp, err := h.SelectToken(req)
		helpers.Respond(w, resp, err)
	})

	r.Post("/deposit", func(w http.ResponseWriter, r *http.Request) {
		var req httpminisafe.AmountRequest
		if err := helpers.DecodeJSON(r, &req); err != nil {
			helpers.WriteError(w, err)
			return
		}
		resp, err := h.Deposit(r.Context(), req)
		helpers.Respond(w, resp, err)
	})

	r.Post("/withdraw", func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.Withdraw(r.Context())
		helpers.Respond(w, resp, err)
	})

	r.Post("/break-lock", func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.BreakLock(r.Context())
		helpers.Respond(w, resp, err)
	})

	r.Route("/merchants", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var form minisafe.MerchantForm
			if err := helpers.DecodeJSON(r, &form); err != nil {
				helpers.WriteError(w, err)
				return
			}
			resp, err := h.AddMerchant(r.Context(), form)
			helpers.Respond(w, resp, err)
		})

		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			var form minisafe.MerchantForm
			if err := helpers.DecodeJSON(r, &form); err != nil {
				helpers.WriteError(w, err)
				return
			}
			resp, err := h.ModifyMerchant(r.Context(), chi.URLParam(r, "id"), form)
			helpers.Respond(w, resp, err)
		})

		r.Post("/{id}/pay", func(w http.ResponseWriter, r *http.Request) {
			var req httpminisafe.AmountRequest
			if err := helpers.DecodeJSON(r, &req); err != nil {
				helpers.WriteError(w, err)
				return
			}
			resp, err := h.PayMerchant(r.Context(), chi.URLParam(r, "id"), req)
			helpers.Respond(w, resp, err)
		})
	})

	for _, page := range httpminisafe.Pages {
		page := page
		r.Get(page.Path, func(w http.ResponseWriter, r *http.Request) {
			helpers.WriteJSON(w, http.StatusOK, page)
		})
	}

	r.Get("/routes", func(w http.ResponseWriter, r *http.Request) {
		helpers.WriteJSON(w, http.StatusOK, httpminisafe.Routes())
	})
}

// RequestLogger logs one line per request with its status and duration.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
