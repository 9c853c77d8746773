package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/kintai-cloud/kintai-backend-go/internal/config"
	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
	"github.com/kintai-cloud/kintai-backend-go/internal/fixtures"
	appHTTP "github.com/kintai-cloud/kintai-backend-go/internal/handler/http"
	"github.com/kintai-cloud/kintai-backend-go/internal/pkg/database"
	"github.com/kintai-cloud/kintai-backend-go/internal/repository/postgresql"
	payrollService "github.com/kintai-cloud/kintai-backend-go/internal/service/payroll"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(
		slog.String("app", "kintai-backend"),
		slog.String("env", cfg.App.Env),
	)

	var payrollSvc payroll.PayrollService
	if cfg.App.Env == "fixtures" {
		// No database: in-memory stores seeded with the demo company.
		stores := fixtures.NewStores()
		seeded := fixtures.SeedDemoCompany(stores)
		logger.Info("running on fixture data", slog.String("company_id", seeded.CompanyID))
		payrollSvc = payrollService.NewPayrollService(
			stores.UnitOfWork, stores.Payroll, stores.Profiles, stores.Rules, stores.Attendance, stores.Employees, logger,
		)
	} else {
		db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
		if err != nil {
			fmt.Println("Error connecting to database:", err)
			return
		}

		uow := postgresql.NewUnitOfWork(db)
		payrollRepo := postgresql.NewPayrollRepository(db)
		profileStore := postgresql.NewCompensationProfileStore(db)
		rulesStore := postgresql.NewCompanyRulesStore(db)
		attendanceProvider := postgresql.NewAttendanceProvider(db)
		employeeRepo := postgresql.NewEmployeeRepository(db)

		payrollSvc = payrollService.NewPayrollService(
			uow, payrollRepo, profileStore, rulesStore, attendanceProvider, employeeRepo, logger,
		)
	}

	payrollHandler := appHTTP.NewPayrollHandler(payrollSvc)
	router := appHTTP.NewRouter(cfg.App.Env, payrollHandler)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	fmt.Printf("Server running at http://localhost%s\n", port)
	if err := http.ListenAndServe(port, router); err != nil {
		fmt.Println("Server error:", err)
	}
}
