package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jonatato/routeit-sub001/internal/middleware"
)

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", h.Health)
	if h.metrics != nil {
		router.Handle("/metrics", h.metrics)
	}
	router.Get("/ws/changes", h.WSChanges)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))

		r.Post("/trips/{tripID}/ledger", h.EnsureLedger)
		r.Get("/sync/dead-letters", h.DeadLetters)

		r.Route("/ledgers/{ledgerID}", func(r chi.Router) {
			r.Use(middleware.RequireMember(h.members))

			r.Get("/", h.GetSnapshot)
			r.Get("/balances", h.GetBalances)
			r.Get("/settlement", h.GetSettlement)

			r.Post("/members", h.AddMember)
			r.Put("/members/{memberID}", h.RenameMember)
			r.Delete("/members/{memberID}", h.RemoveMember)

			r.Post("/expenses", h.AddExpense)
			r.Get("/expenses/{expenseID}", h.GetExpense)
			r.Put("/expenses/{expenseID}", h.UpdateExpense)
			r.Delete("/expenses/{expenseID}", h.DeleteExpense)
			r.Get("/expenses/{expenseID}/comments", h.ListComments)
			r.Post("/expenses/{expenseID}/comments", h.AddComment)
			r.Delete("/comments/{commentID}", h.DeleteComment)
			r.Post("/expenses/{expenseID}/tags/{tagID}", h.AttachTag)
			r.Delete("/expenses/{expenseID}/tags/{tagID}", h.DetachTag)

			r.Post("/payments", h.RecordPayment)
			r.Delete("/payments/{paymentID}", h.DeletePayment)

			r.Get("/categories", h.ListCategories)
			r.Post("/categories", h.AddCategory)
			r.Delete("/categories/{categoryID}", h.DeleteCategory)

			r.Get("/tags", h.ListTags)
			r.Post("/tags", h.AddTag)
			r.Delete("/tags/{tagID}", h.DeleteTag)

			r.Get("/reminders", h.ListReminders)
			r.Post("/reminders", h.AddReminder)
			r.Delete("/reminders/{reminderID}", h.DeleteReminder)
		})
	})

	return router
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DeadLetters reports the offline edits that exhausted their retry budget and
// will not be replayed without intervention.
func (h *Handler) DeadLetters(w http.ResponseWriter, r *http.Request) {
	dead, err := h.service.DeadLetters(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"mutations": dead})
}
