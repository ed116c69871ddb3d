package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/acmebank/mts-backend/internal/api/handlers"
	"github.com/acmebank/mts-backend/internal/auth"
	"github.com/acmebank/mts-backend/internal/config"
	"github.com/acmebank/mts-backend/internal/metrics"
	"github.com/acmebank/mts-backend/internal/middleware"
	"github.com/acmebank/mts-backend/internal/services"
)

// RouterDeps carries everything the HTTP surface needs.
type RouterDeps struct {
	Cfg         config.Config
	Tokens      *auth.TokenManager
	AccountSvc  *services.AccountService
	TransferSvc *services.TransactionService
	BankSvc     *services.BankDetailsService
	UserSvc     *services.UserService
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	authH := handlers.NewAuthHandler(d.UserSvc, d.Tokens)
	accountsH := handlers.NewAccountsHandler(d.AccountSvc)
	transfersH := handlers.NewTransfersHandler(d.TransferSvc)
	bankH := handlers.NewBankDetailsHandler(d.BankSvc)
	authMW := middleware.NewAuthMiddleware(d.Tokens)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authH.Register)
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)

		// everything below requires a bearer token
		r.Group(func(r chi.Router) {
			r.Use(authMW.Auth)

			r.Route("/accounts", func(r chi.Router) {
				r.Post("/", accountsH.Create)
				r.Get("/{id}", accountsH.Get)
				r.Get("/by-number/{number}", accountsH.GetByNumber)
				r.Get("/by-holder/{name}", accountsH.GetByHolder)
				r.Post("/{id}/credit", accountsH.Credit)
				r.Post("/{id}/debit", accountsH.Debit)
				r.Post("/{id}/lock", accountsH.Lock)
				r.Post("/{id}/unlock", accountsH.Unlock)
				r.Post("/{id}/close", accountsH.Close)
			})

			r.Route("/transfers", func(r chi.Router) {
				r.Post("/", transfersH.Idempotent)
				r.Post("/by-number", transfersH.ByAccountNumber)
				r.Get("/", transfersH.List)
				r.Get("/{id}", transfersH.Get)
				r.Get("/account/{id}", transfersH.ListByAccount)
				r.Get("/account/{id}/failed", transfersH.ListFailedByAccount)
			})

			r.Route("/bank-details", func(r chi.Router) {
				r.Post("/", bankH.Save)
				r.Get("/{id}", bankH.Get)
				r.Get("/by-number/{number}", bankH.GetByNumber)
				r.Post("/{id}/upi", bankH.SetupUPI)
			})
		})
	})

	return r
}
