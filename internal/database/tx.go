package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type unitOfWorkKey struct{}

// UnitOfWork is a transaction bound to one request. Callbacks registered with
// AfterCommit run only once the transaction has committed.
type UnitOfWork struct {
	tx          *gorm.DB
	afterCommit []func(context.Context)
}

// Begin opens a transaction and returns a context carrying it.
func Begin(ctx context.Context, db *gorm.DB) (context.Context, *UnitOfWork, error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return ctx, nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	uow := &UnitOfWork{tx: tx}
	return context.WithValue(ctx, unitOfWorkKey{}, uow), uow, nil
}

// Commit commits the transaction, then runs the after-commit callbacks with ctx.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if err := u.tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	callbacks := u.afterCommit
	u.afterCommit = nil
	for _, fn := range callbacks {
		fn(ctx)
	}
	return nil
}

// Rollback discards the transaction. Rolling back a finished transaction is a no-op.
func (u *UnitOfWork) Rollback() error {
	u.afterCommit = nil
	if err := u.tx.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// FromContext returns the unit of work bound to ctx, if any.
func FromContext(ctx context.Context) *UnitOfWork {
	uow, _ := ctx.Value(unitOfWorkKey{}).(*UnitOfWork)
	return uow
}

// Conn returns the transaction bound to ctx, or db itself, scoped to ctx.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if uow := FromContext(ctx); uow != nil {
		return uow.tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// AfterCommit defers fn until the unit of work in ctx commits. Without one, fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	if uow := FromContext(ctx); uow != nil {
		uow.afterCommit = append(uow.afterCommit, fn)
		return
	}
	fn(ctx)
}

// InTransaction runs fn inside a transaction. When ctx already carries a unit
// of work, fn joins it and the outer owner decides commit or rollback.
func InTransaction(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) (err error) {
	if FromContext(ctx) != nil {
		return fn(ctx)
	}

	txCtx, uow, err := Begin(ctx, db)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = uow.Rollback()
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return uow.Commit(ctx)
}

// Transactor binds InTransaction to a database handle.
type Transactor struct {
	db *gorm.DB
}

// NewTransactor returns a Transactor over db.
func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

// InTransaction runs fn via InTransaction on the bound database.
func (t *Transactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return InTransaction(ctx, t.db, fn)
}
