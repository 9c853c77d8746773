package http

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

func NewRouter(env string, payrollHandler PayrollHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "kintai-backend"),
		slog.String("version", "v1.0.0"),
		slog.String("env", env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1/companies/{companyID}/payroll", func(r chi.Router) {
		r.Get("/rules", payrollHandler.GetRules)
		r.Put("/rules", payrollHandler.UpdateRules)

		r.Route("/records", func(r chi.Router) {
			r.Get("/", payrollHandler.ListRecords)
			r.Post("/generate", payrollHandler.GeneratePayroll)
			r.Get("/{id}", payrollHandler.GetRecord)
			r.Get("/{id}/history", payrollHandler.GetEditHistory)
			r.Patch("/{id}", payrollHandler.EditRecordField)
			r.Put("/{id}/status", payrollHandler.UpdateStatus)
		})

		r.Route("/recalculations", func(r chi.Router) {
			r.Post("/", payrollHandler.RunRecalculation)
			r.Post("/{sessionID}/apply", payrollHandler.ApplyRecalculation)
			r.Post("/{sessionID}/cancel", payrollHandler.CancelRecalculation)
		})
	})

	return r
}
