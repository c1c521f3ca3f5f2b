package database

import (
	"context"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/protomem/credit-bank/internal/model"
	"github.com/shopspring/decimal"
)

const _creditsResponseFKey = "credits_response_id_fkey"

type CreditDAO struct {
	Logger  *slog.Logger
	Builder squirrel.StatementBuilderType
	ext     sqlx.ExtContext
}

func NewCreditDAO(logger *slog.Logger, db *DB) *CreditDAO {
	return &CreditDAO{
		Logger:  logger.With("dao", "credit"),
		Builder: db.Builder,
		ext:     db.DB,
	}
}

func (dao *CreditDAO) WithTx(tx *sqlx.Tx) *CreditDAO {
	clone := *dao
	clone.ext = tx
	return &clone
}

type FindCreditFilter struct {
	UserID *model.ID
}

func (dao *CreditDAO) Find(ctx context.Context, filter FindCreditFilter, opts FindOptions) ([]model.Credit, error) {
	logger := dao.Logger.With("query", "find")

	equals := squirrel.Eq{}
	if filter.UserID != nil {
		equals["user_id"] = *filter.UserID
	}

	query, args, err := opts.apply(dao.Builder.
		Select("*").
		From("credits").
		Where(equals).
		OrderBy("id ASC")).
		ToSql()
	if err != nil {
		return []model.Credit{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	credits := make([]model.Credit, 0)
	if err := sqlx.SelectContext(ctx, dao.ext, &credits, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)

		return []model.Credit{}, err
	}

	logger.Debug("success query execute", "countCredits", len(credits))

	return credits, nil
}

func (dao *CreditDAO) Get(ctx context.Context, id model.ID, scope *model.ID) (model.Credit, error) {
	logger := dao.Logger.With("query", "get")

	builder := dao.Builder.
		Select("*").
		From("credits").
		Where(squirrel.Eq{"id": id})
	if scope != nil {
		builder = builder.Where(squirrel.Eq{"user_id": *scope})
	}

	query, args, err := builder.Limit(1).ToSql()
	if err != nil {
		return model.Credit{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var credit model.Credit
	if err := sqlx.GetContext(ctx, dao.ext, &credit, query, args...); err != nil {
		if IsNoRows(err) {
			return model.Credit{}, model.NewError("credit", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)

		return model.Credit{}, err
	}

	logger.Debug("success query execute", "creditId", credit.ID)

	return credit, nil
}

type InsertCreditDTO struct {
	UserID      model.ID
	ResponseID  *model.ID
	NextPayDate model.Date
	RemainToPay decimal.Decimal
	MonthlyPay  decimal.Decimal
	Percent     decimal.Decimal
}

func NewInsertCreditDTO(in model.CreditInput) InsertCreditDTO {
	return InsertCreditDTO{
		UserID:      in.UserID,
		ResponseID:  in.ResponseID,
		NextPayDate: in.NextPayDate,
		RemainToPay: in.RemainToPay,
		MonthlyPay:  in.MonthlyPay,
		Percent:     in.Percent,
	}
}

// Insert stores a credit. Unknown user or response ids are reported as
// ErrNotFound for that entity; a second credit for one response as ErrExists.
func (dao *CreditDAO) Insert(ctx context.Context, dto InsertCreditDTO) (model.ID, error) {
	logger := dao.Logger.With("query", "insert")

	query, args, err := dao.Builder.
		Insert("credits").
		Columns("user_id", "response_id", "next_pay_date", "remain_to_pay", "monthly_pay", "percent").
		Values(dto.UserID, dto.ResponseID, dto.NextPayDate, dto.RemainToPay, dto.MonthlyPay, dto.Percent).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var id model.ID
	row := dao.ext.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&id); err != nil {
		logger.Warn("failed query execute", "error", err)

		switch {
		case IsUniqueViolation(err):
			return 0, model.NewError("credit", model.ErrExists)
		case IsForeignKeyViolation(err) && ConstraintName(err) == _creditsResponseFKey:
			return 0, model.NewError("response", model.ErrNotFound)
		case IsForeignKeyViolation(err):
			return 0, model.NewError("user", model.ErrNotFound)
		}
		if verr := InvalidValue(err); verr != nil {
			return 0, verr
		}

		return 0, err
	}

	logger.Debug("success query execute", "insertId", id)

	return id, nil
}
