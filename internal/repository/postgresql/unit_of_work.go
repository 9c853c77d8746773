package postgresql

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/kintai-cloud/kintai-backend-go/internal/domain/payroll"
	"github.com/kintai-cloud/kintai-backend-go/internal/pkg/database"
)

type unitOfWork struct {
	db *database.DB
}

// NewUnitOfWork runs the callback inside a single database transaction;
// repositories pick the transaction up through GetQuerier.
func NewUnitOfWork(db *database.DB) payroll.UnitOfWork {
	return &unitOfWork{db: db}
}

func (u *unitOfWork) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTransaction(ctx, u.db, func(tx pgx.Tx) error {
		txCtx := context.WithValue(ctx, "tx", tx)
		return fn(txCtx)
	})
}
