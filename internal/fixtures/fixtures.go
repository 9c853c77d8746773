// Package fixtures seeds deterministic demo data into the in-memory stores.
// Used by the local development mode and by service-level tests that want a
// realistic company without a database.
package fixtures

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kintai-cloud/kintai-backend-go/internal/domain/employee"
	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
	"github.com/kintai-cloud/kintai-backend-go/internal/repository/memory"
)

// ==========================================
// SEEDED DATA RESULT
// ==========================================

// SeededCompany holds the fixed IDs of the demo company's data set.
type SeededCompany struct {
	CompanyID string

	// UserIDs by employee code, e.g. "EMP-001" -> user id
	UserIDs map[string]string
}

// Stores bundles the in-memory stores the seed writes into.
type Stores struct {
	UnitOfWork *memory.UnitOfWork
	Payroll    *memory.PayrollRepository
	Profiles   *memory.CompensationProfileStore
	Rules      *memory.CompanyRulesStore
	Attendance *memory.AttendanceProvider
	Employees  *memory.EmployeeRepository
}

func NewStores() *Stores {
	return &Stores{
		UnitOfWork: memory.NewUnitOfWork(),
		Payroll:    memory.NewPayrollRepository(),
		Profiles:   memory.NewCompensationProfileStore(),
		Rules:      memory.NewCompanyRulesStore(),
		Attendance: memory.NewAttendanceProvider(),
		Employees:  memory.NewEmployeeRepository(),
	}
}

// ==========================================
// DEMO COMPANY
// ==========================================

const demoCompanyID = "0190a1b2-0000-7000-8000-000000000001"

type seedEmployee struct {
	userID      string
	code        string
	name        string
	baseSalary  string
	commuting   string
	housing     string
	taxCat      payroll.TaxCategory
	normalMin   int
	overtimeMin int
	holidayMin  int
	days        int
}

var demoEmployees = []seedEmployee{
	{
		userID:     "0190a1b2-0000-7000-8000-0000000000a1",
		code:       "EMP-001",
		name:       "佐藤 太郎",
		baseSalary: "320000",
		commuting:  "12000",
		housing:    "20000",
		taxCat:     payroll.TaxCategoryKou,
		normalMin:  9600, overtimeMin: 600, holidayMin: 0, days: 20,
	},
	{
		userID:     "0190a1b2-0000-7000-8000-0000000000a2",
		code:       "EMP-002",
		name:       "鈴木 花子",
		baseSalary: "280000",
		commuting:  "8000",
		housing:    "0",
		taxCat:     payroll.TaxCategoryKou,
		normalMin:  9120, overtimeMin: 1200, holidayMin: 480, days: 21,
	},
	{
		userID:     "0190a1b2-0000-7000-8000-0000000000a3",
		code:       "EMP-003",
		name:       "高橋 健",
		baseSalary: "350000",
		commuting:  "15000",
		housing:    "30000",
		taxCat:     payroll.TaxCategoryOtsu,
		normalMin:  0, overtimeMin: 0, holidayMin: 0, days: 0,
	},
}

// SeedDemoCompany loads one company with rules, three employees with
// compensation profiles, and one month of attendance. Payroll records are
// intentionally not seeded; they come from the generate operation.
func SeedDemoCompany(stores *Stores) SeededCompany {
	seeded := SeededCompany{
		CompanyID: demoCompanyID,
		UserIDs:   make(map[string]string),
	}

	stores.Rules.Upsert(context.Background(), payroll.CompanyRules{
		ID:                        "0190a1b2-0000-7000-8000-0000000000f1",
		CompanyID:                 demoCompanyID,
		CutoffDay:                 25,
		PaymentDay:                10,
		HealthInsuranceRate:       decimal.RequireFromString("0.0499"),
		EmployeePensionRate:       decimal.RequireFromString("0.0915"),
		EmploymentInsuranceRate:   decimal.RequireFromString("0.0055"),
		ResidentTaxRate:           decimal.RequireFromString("0.06"),
		CommutingAllowanceEnabled: true,
		HousingAllowanceEnabled:   true,
	})

	hireDate := time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC)
	for i, se := range demoEmployees {
		seeded.UserIDs[se.code] = se.userID

		stores.Employees.Put(employee.Employee{
			ID:               se.userID,
			UserID:           se.userID,
			CompanyID:        demoCompanyID,
			EmployeeCode:     se.code,
			FullName:         se.name,
			EmploymentStatus: employee.EmploymentStatusActive,
			HireDate:         hireDate.AddDate(0, i, 0),
		})

		stores.Profiles.Put(payroll.CompensationProfile{
			ID:                 se.userID,
			UserID:             se.userID,
			CompanyID:          demoCompanyID,
			BaseSalary:         decimal.RequireFromString(se.baseSalary),
			OvertimeMultiplier: decimal.RequireFromString("1.25"),
			CommutingAllowance: decimal.RequireFromString(se.commuting),
			HousingAllowance:   decimal.RequireFromString(se.housing),
			TaxCategory:        se.taxCat,
			Rounding:           payroll.RoundingFloor,
		})

		stores.Attendance.Put(se.userID, payroll.AttendanceAggregate{
			UserID:          se.userID,
			NormalMinutes:   se.normalMin,
			OvertimeMinutes: se.overtimeMin,
			HolidayMinutes:  se.holidayMin,
			WorkingDays:     se.days,
		})
	}

	return seeded
}
