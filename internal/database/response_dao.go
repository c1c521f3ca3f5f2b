package database

import (
	"context"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/protomem/credit-bank/internal/model"
	"github.com/shopspring/decimal"
)

type ResponseDAO struct {
	Logger  *slog.Logger
	Builder squirrel.StatementBuilderType
	ext     sqlx.ExtContext
}

func NewResponseDAO(logger *slog.Logger, db *DB) *ResponseDAO {
	return &ResponseDAO{
		Logger:  logger.With("dao", "response"),
		Builder: db.Builder,
		ext:     db.DB,
	}
}

func (dao *ResponseDAO) WithTx(tx *sqlx.Tx) *ResponseDAO {
	clone := *dao
	clone.ext = tx
	return &clone
}

type FindResponseFilter struct {
	// UserID restricts the result to responses on orders owned by the user.
	UserID *model.ID
}

func (dao *ResponseDAO) selectScoped(scope *model.ID) squirrel.SelectBuilder {
	builder := dao.Builder.
		Select("responses.*").
		From("responses")
	if scope != nil {
		builder = builder.
			Join("orders ON orders.id = responses.order_id").
			Where(squirrel.Eq{"orders.user_id": *scope})
	}
	return builder
}

func (dao *ResponseDAO) Find(ctx context.Context, filter FindResponseFilter, opts FindOptions) ([]model.Response, error) {
	logger := dao.Logger.With("query", "find")

	query, args, err := opts.apply(dao.selectScoped(filter.UserID).
		OrderBy("responses.id ASC")).
		ToSql()
	if err != nil {
		return []model.Response{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	responses := make([]model.Response, 0)
	if err := sqlx.SelectContext(ctx, dao.ext, &responses, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)

		return []model.Response{}, err
	}

	logger.Debug("success query execute", "countResponses", len(responses))

	return responses, nil
}

// FindByOrders loads the responses for the given orders keyed by order id.
func (dao *ResponseDAO) FindByOrders(ctx context.Context, orderIDs []model.ID) (map[model.ID]model.Response, error) {
	logger := dao.Logger.With("query", "findByOrders")

	responses := make(map[model.ID]model.Response, len(orderIDs))
	if len(orderIDs) == 0 {
		return responses, nil
	}

	query, args, err := dao.Builder.
		Select("*").
		From("responses").
		Where(squirrel.Eq{"order_id": orderIDs}).
		ToSql()
	if err != nil {
		return nil, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var rows []model.Response
	if err := sqlx.SelectContext(ctx, dao.ext, &rows, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)

		return nil, err
	}

	for _, response := range rows {
		responses[response.OrderID] = response
	}

	logger.Debug("success query execute", "countResponses", len(responses))

	return responses, nil
}

func (dao *ResponseDAO) Get(ctx context.Context, id model.ID, scope *model.ID) (model.Response, error) {
	return dao.getBy(ctx, "get", dao.selectScoped(scope).Where(squirrel.Eq{"responses.id": id}))
}

func (dao *ResponseDAO) GetByOrder(ctx context.Context, orderID model.ID) (model.Response, error) {
	return dao.getBy(ctx, "getByOrder", dao.selectScoped(nil).Where(squirrel.Eq{"responses.order_id": orderID}))
}

func (dao *ResponseDAO) getBy(ctx context.Context, name string, builder squirrel.SelectBuilder) (model.Response, error) {
	logger := dao.Logger.With("query", name)

	query, args, err := builder.Limit(1).ToSql()
	if err != nil {
		return model.Response{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var response model.Response
	if err := sqlx.GetContext(ctx, dao.ext, &response, query, args...); err != nil {
		if IsNoRows(err) {
			return model.Response{}, model.NewError("response", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)

		return model.Response{}, err
	}

	logger.Debug("success query execute", "responseId", response.ID)

	return response, nil
}

type InsertResponseDTO struct {
	OrderID    model.ID
	Percent    decimal.Decimal
	MonthlyPay decimal.Decimal
}

// Insert stores a response. The unique constraint on order_id decides
// concurrent duplicates; a violation is reported as ErrExists.
func (dao *ResponseDAO) Insert(ctx context.Context, dto InsertResponseDTO) (model.ID, error) {
	logger := dao.Logger.With("query", "insert")

	query, args, err := dao.Builder.
		Insert("responses").
		Columns("order_id", "percent", "monthly_pay").
		Values(dto.OrderID, dto.Percent, dto.MonthlyPay).
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
			return 0, model.NewError("response", model.ErrExists)
		case IsForeignKeyViolation(err):
			return 0, model.NewError("order", model.ErrNotFound)
		}
		if verr := InvalidValue(err); verr != nil {
			return 0, verr
		}

		return 0, err
	}

	logger.Debug("success query execute", "insertId", id)

	return id, nil
}
