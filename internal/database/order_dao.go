package database

import (
	"context"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/protomem/credit-bank/internal/model"
	"github.com/shopspring/decimal"
)

type OrderDAO struct {
	Logger  *slog.Logger
	Builder squirrel.StatementBuilderType
	ext     sqlx.ExtContext
}

func NewOrderDAO(logger *slog.Logger, db *DB) *OrderDAO {
	return &OrderDAO{
		Logger:  logger.With("dao", "order"),
		Builder: db.Builder,
		ext:     db.DB,
	}
}

func (dao *OrderDAO) WithTx(tx *sqlx.Tx) *OrderDAO {
	clone := *dao
	clone.ext = tx
	return &clone
}

type FindOrderFilter struct {
	UserID     *model.ID
	OnlyActive bool
}

func (dao *OrderDAO) Find(ctx context.Context, filter FindOrderFilter, opts FindOptions) ([]model.Order, error) {
	logger := dao.Logger.With("query", "find")

	equals := squirrel.Eq{}
	if filter.UserID != nil {
		equals["user_id"] = *filter.UserID
	}
	if filter.OnlyActive {
		equals["active"] = true
	}

	query, args, err := opts.apply(dao.Builder.
		Select("*").
		From("orders").
		Where(equals).
		OrderBy("id ASC")).
		ToSql()
	if err != nil {
		return []model.Order{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	orders := make([]model.Order, 0)
	if err := sqlx.SelectContext(ctx, dao.ext, &orders, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)

		return []model.Order{}, err
	}

	logger.Debug("success query execute", "countOrders", len(orders))

	return orders, nil
}

// FindByIDs loads the orders with the given ids keyed by id.
func (dao *OrderDAO) FindByIDs(ctx context.Context, ids []model.ID) (map[model.ID]model.Order, error) {
	logger := dao.Logger.With("query", "findByIds")

	orders := make(map[model.ID]model.Order, len(ids))
	if len(ids) == 0 {
		return orders, nil
	}

	query, args, err := dao.Builder.
		Select("*").
		From("orders").
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var rows []model.Order
	if err := sqlx.SelectContext(ctx, dao.ext, &rows, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)

		return nil, err
	}

	for _, order := range rows {
		orders[order.ID] = order
	}

	logger.Debug("success query execute", "countOrders", len(orders))

	return orders, nil
}

// Get returns the order with the given id. A non-nil scope restricts the
// lookup to orders owned by that user.
func (dao *OrderDAO) Get(ctx context.Context, id model.ID, scope *model.ID) (model.Order, error) {
	return dao.get(ctx, "get", id, scope, false)
}

// GetForUpdate returns the order and locks its row until the surrounding
// transaction ends.
func (dao *OrderDAO) GetForUpdate(ctx context.Context, id model.ID) (model.Order, error) {
	return dao.get(ctx, "getForUpdate", id, nil, true)
}

func (dao *OrderDAO) get(ctx context.Context, name string, id model.ID, scope *model.ID, lock bool) (model.Order, error) {
	logger := dao.Logger.With("query", name)

	builder := dao.Builder.
		Select("*").
		From("orders").
		Where(squirrel.Eq{"id": id})
	if scope != nil {
		builder = builder.Where(squirrel.Eq{"user_id": *scope})
	}
	builder = builder.Limit(1)
	if lock {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return model.Order{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var order model.Order
	if err := sqlx.GetContext(ctx, dao.ext, &order, query, args...); err != nil {
		if IsNoRows(err) {
			return model.Order{}, model.NewError("order", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)

		return model.Order{}, err
	}

	logger.Debug("success query execute", "orderId", order.ID)

	return order, nil
}

type InsertOrderDTO struct {
	UserID     model.ID
	CreditSize decimal.Decimal
	Period     int
	Target     string
	Status     model.OrderStatus
	Active     bool
}

func NewInsertOrderDTO(in model.OrderInput) InsertOrderDTO {
	return InsertOrderDTO{
		UserID:     in.UserID,
		CreditSize: in.CreditSize,
		Period:     in.Period,
		Target:     in.Target,
		Status:     model.StatusSubmitted,
		Active:     true,
	}
}

// Insert stores a new order. An unknown user id is reported as a missing user.
func (dao *OrderDAO) Insert(ctx context.Context, dto InsertOrderDTO) (model.ID, error) {
	logger := dao.Logger.With("query", "insert")

	query, args, err := dao.Builder.
		Insert("orders").
		Columns("user_id", "credit_size", "period", "target", "status", "active").
		Values(dto.UserID, dto.CreditSize, dto.Period, dto.Target, dto.Status, dto.Active).
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

		if IsForeignKeyViolation(err) {
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

func (dao *OrderDAO) ChangeStatus(ctx context.Context, id model.ID, status model.OrderStatus, active bool) error {
	logger := dao.Logger.With("query", "changeStatus")

	query, args, err := dao.Builder.
		Update("orders").
		SetMap(map[string]any{
			"status": status,
			"active": active,
		}).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	logger.Debug("build query", "sql", query, "args", args)

	res, err := dao.ext.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Warn("failed query execute", "error", err)

		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.NewError("order", model.ErrNotFound)
	}

	logger.Debug("success query execute", "updateId", id, "status", status, "active", active)

	return nil
}
