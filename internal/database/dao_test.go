package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/protomem/credit-bank/internal/model"
	"github.com/protomem/credit-bank/internal/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	_orderColumns  = []string{"id", "created_at", "credit_size", "period", "target", "status", "active", "user_id"}
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return Wrap(sqlx.NewDb(sqlDB, _driverName)), mock
}

func pgError(code, constraint string) error {
	return &pgconn.PgError{Code: code, ConstraintName: constraint}
}

func TestOrderDAOInsertUnknownUser(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewOrderDAO(_discardLogger, db)

	mock.ExpectQuery(`INSERT INTO orders \(user_id,credit_size,period,target,status,active\) VALUES \(\$1,\$2,\$3,\$4,\$5,\$6\) RETURNING id`).
		WithArgs(7, "50000", 12, "Car", "submitted", true).
		WillReturnError(pgError(pgerrcode.ForeignKeyViolation, "orders_user_id_fkey"))

	_, err := dao.Insert(context.Background(), NewInsertOrderDTO(model.OrderInput{
		UserID:     7,
		CreditSize: decimal.NewFromInt(50000),
		Period:     12,
		Target:     "Car",
	}))

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.Equal(t, "user: not found", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderDAOInsertValueOutOfRange(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewOrderDAO(_discardLogger, db)

	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnError(pgError(pgerrcode.NumericValueOutOfRange, ""))

	_, err := dao.Insert(context.Background(), InsertOrderDTO{
		UserID:     7,
		CreditSize: decimal.New(1, 15),
		Period:     12,
		Status:     model.StatusSubmitted,
		Active:     true,
	})

	var verr *validator.Error
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, []string{"numeric value is out of range"}, verr.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseDAOInsertCheckViolation(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewResponseDAO(_discardLogger, db)

	mock.ExpectQuery(`INSERT INTO responses`).
		WillReturnError(pgError(pgerrcode.CheckViolation, "responses_monthly_pay_check"))

	_, err := dao.Insert(context.Background(), InsertResponseDTO{
		OrderID:    3,
		Percent:    decimal.NewFromInt(12),
		MonthlyPay: decimal.NewFromInt(-1),
	})

	var verr *validator.Error
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, []string{"is out of the allowed range"}, verr.FieldErrors["monthly_pay"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidValue(t *testing.T) {
	assert.Nil(t, InvalidValue(errors.New("boom")))
	assert.Nil(t, InvalidValue(pgError(pgerrcode.UniqueViolation, "users_email_key")))

	var verr *validator.Error
	require.True(t, errors.As(InvalidValue(pgError(pgerrcode.CheckViolation, "users_passport_serial_check")), &verr))
	assert.True(t, verr.Has("passport_serial"))

	require.True(t, errors.As(InvalidValue(pgError(pgerrcode.CheckViolation, "")), &verr))
	assert.Equal(t, []string{"value is out of the allowed range"}, verr.Errors)
}

func TestOrderDAOInsertReturnsID(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewOrderDAO(_discardLogger, db)

	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	id, err := dao.Insert(context.Background(), InsertOrderDTO{
		UserID:     7,
		CreditSize: decimal.NewFromInt(6000),
		Period:     3,
		Status:     model.StatusSubmitted,
		Active:     true,
	})

	require.NoError(t, err)
	assert.Equal(t, model.ID(11), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderDAOGetScoped(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewOrderDAO(_discardLogger, db)
	scope := model.ID(7)

	mock.ExpectQuery(`SELECT \* FROM orders WHERE id = \$1 AND user_id = \$2 LIMIT 1`).
		WithArgs(3, 7).
		WillReturnRows(sqlmock.NewRows(_orderColumns))

	_, err := dao.Get(context.Background(), 3, &scope)

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderDAOGetForUpdateLocksRow(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewOrderDAO(_discardLogger, db)
	created := time.Date(2026, time.October, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM orders WHERE id = \$1 LIMIT 1 FOR UPDATE`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(_orderColumns).
			AddRow(3, created, "50000.00", 12, "Car", "submitted", true, 7))

	order, err := dao.GetForUpdate(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, order.Status)
	assert.True(t, order.CreditSize.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, model.ID(7), order.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderDAOFindActive(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewOrderDAO(_discardLogger, db)
	created := time.Date(2026, time.October, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM orders WHERE active = \$1 ORDER BY id ASC LIMIT 10`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows(_orderColumns).
			AddRow(1, created, "10000", 6, "Repairs", "submitted", true, 2).
			AddRow(4, created, "70000", 24, "Car", "submitted", true, 5))

	orders, err := dao.Find(context.Background(), FindOrderFilter{OnlyActive: true}, FindOptions{Limit: 10})

	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, model.ID(4), orders[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderDAOChangeStatusMissing(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewOrderDAO(_discardLogger, db)

	mock.ExpectExec(`UPDATE orders SET active = \$1, status = \$2 WHERE id = \$3`).
		WithArgs(false, "processed", 99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := dao.ChangeStatus(context.Background(), 99, model.StatusProcessed, false)

	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseDAOInsertDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewResponseDAO(_discardLogger, db)

	mock.ExpectQuery(`INSERT INTO responses \(order_id,percent,monthly_pay\)`).
		WillReturnError(pgError(pgerrcode.UniqueViolation, "responses_order_id_key"))

	_, err := dao.Insert(context.Background(), InsertResponseDTO{
		OrderID:    3,
		Percent:    decimal.NewFromInt(12),
		MonthlyPay: decimal.NewFromInt(4500),
	})

	assert.True(t, errors.Is(err, model.ErrExists))
	assert.Equal(t, "response: already exists", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseDAOInsertUnknownOrder(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewResponseDAO(_discardLogger, db)

	mock.ExpectQuery(`INSERT INTO responses`).
		WillReturnError(pgError(pgerrcode.ForeignKeyViolation, "responses_order_id_fkey"))

	_, err := dao.Insert(context.Background(), InsertResponseDTO{OrderID: 404})

	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.Equal(t, "order: not found", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseDAOFindScopedJoinsOrders(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewResponseDAO(_discardLogger, db)
	scope := model.ID(5)

	mock.ExpectQuery(`SELECT responses\.\* FROM responses JOIN orders ON orders\.id = responses\.order_id WHERE orders\.user_id = \$1 ORDER BY responses\.id ASC`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "order_id", "percent", "monthly_pay"}).
			AddRow(2, time.Now(), 4, "11.5", "3000"))

	responses, err := dao.Find(context.Background(), FindResponseFilter{UserID: &scope}, FindOptions{})

	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, model.ID(4), responses[0].OrderID)
	assert.Equal(t, "11.5", responses[0].Percent.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditDAOInsertForeignKeys(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewCreditDAO(_discardLogger, db)
	responseID := model.ID(8)

	dto := InsertCreditDTO{
		UserID:      7,
		ResponseID:  &responseID,
		NextPayDate: model.NewDate(2026, time.November, 15),
		RemainToPay: decimal.NewFromInt(50000),
		MonthlyPay:  decimal.NewFromInt(4500),
		Percent:     decimal.NewFromInt(12),
	}

	mock.ExpectQuery(`INSERT INTO credits`).
		WithArgs(7, 8, "2026-11-15", "50000", "4500", "12").
		WillReturnError(pgError(pgerrcode.ForeignKeyViolation, "credits_response_id_fkey"))
	mock.ExpectQuery(`INSERT INTO credits`).
		WillReturnError(pgError(pgerrcode.ForeignKeyViolation, "credits_user_id_fkey"))
	mock.ExpectQuery(`INSERT INTO credits`).
		WillReturnError(pgError(pgerrcode.UniqueViolation, "credits_response_id_key"))

	_, err := dao.Insert(context.Background(), dto)
	assert.Equal(t, "response: not found", err.Error())

	_, err = dao.Insert(context.Background(), dto)
	assert.Equal(t, "user: not found", err.Error())

	_, err = dao.Insert(context.Background(), dto)
	assert.True(t, errors.Is(err, model.ErrExists))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDAODelete(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewUserDAO(_discardLogger, db)

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(7).
		WillReturnError(pgError(pgerrcode.ForeignKeyViolation, "orders_user_id_fkey"))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(8).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := dao.Delete(context.Background(), 7)
	assert.True(t, errors.Is(err, model.ErrHasDependents))

	err = dao.Delete(context.Background(), 8)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	assert.NoError(t, dao.Delete(context.Background(), 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDAOInsertDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewUserDAO(_discardLogger, db)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(pgError(pgerrcode.UniqueViolation, "users_email_key"))

	_, err := dao.Insert(context.Background(), InsertUserDTO{Email: "taken@example.com"})

	assert.True(t, errors.Is(err, model.ErrExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDAOFindByIDsSkipsEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewUserDAO(_discardLogger, db)

	users, err := dao.FindByIDs(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := db.InTx(context.Background(), func(tx *sqlx.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = db.InTx(context.Background(), func(tx *sqlx.Tx) error {
		return NewOrderDAO(_discardLogger, db).WithTx(tx).ChangeStatus(context.Background(), 1, model.StatusProcessed, false)
	})
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
