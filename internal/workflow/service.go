// Package workflow implements the order, response and credit lifecycle on
// top of the persistence layer. Every operation runs in its own transaction.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/protomem/credit-bank/internal/database"
	"github.com/protomem/credit-bank/internal/model"
)

type Service struct {
	logger *slog.Logger
	db     *database.DB
	now    func() time.Time
}

func New(logger *slog.Logger, db *database.DB) *Service {
	return &Service{
		logger: logger,
		db:     db,
		now:    time.Now,
	}
}

// WithLogger returns a copy of the service logging through logger.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	clone := *s
	clone.logger = logger
	return &clone
}

func (s *Service) WithClock(now func() time.Time) *Service {
	clone := *s
	clone.now = now
	return &clone
}

type ListQuery struct {
	UserID   *model.ID
	Personal bool
	database.FindOptions
}

type OrderQuery struct {
	ListQuery
	OnlyNew bool
}

type store struct {
	users     *database.UserDAO
	orders    *database.OrderDAO
	responses *database.ResponseDAO
	credits   *database.CreditDAO
}

func (s *Service) inTx(ctx context.Context, fn func(st store) error) error {
	return s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		return fn(store{
			users:     database.NewUserDAO(s.logger, s.db).WithTx(tx),
			orders:    database.NewOrderDAO(s.logger, s.db).WithTx(tx),
			responses: database.NewResponseDAO(s.logger, s.db).WithTx(tx),
			credits:   database.NewCreditDAO(s.logger, s.db).WithTx(tx),
		})
	})
}

// hydrateOrders attaches the owning user and the response, if any, to every
// order.
func (st store) hydrateOrders(ctx context.Context, orders []model.Order) error {
	userIDs := make([]model.ID, 0, len(orders))
	orderIDs := make([]model.ID, 0, len(orders))
	for _, order := range orders {
		userIDs = append(userIDs, order.UserID)
		orderIDs = append(orderIDs, order.ID)
	}

	users, err := st.users.FindByIDs(ctx, uniqueIDs(userIDs))
	if err != nil {
		return err
	}

	responses, err := st.responses.FindByOrders(ctx, orderIDs)
	if err != nil {
		return err
	}

	for i := range orders {
		if user, ok := users[orders[i].UserID]; ok {
			orders[i].User = &user
		}
		if response, ok := responses[orders[i].ID]; ok {
			orders[i].Response = &response
		}
	}

	return nil
}

// hydrateResponses attaches the order and the order's user to every response.
func (st store) hydrateResponses(ctx context.Context, responses []model.Response) error {
	orderIDs := make([]model.ID, 0, len(responses))
	for _, response := range responses {
		orderIDs = append(orderIDs, response.OrderID)
	}

	orders, err := st.orders.FindByIDs(ctx, uniqueIDs(orderIDs))
	if err != nil {
		return err
	}

	userIDs := make([]model.ID, 0, len(orders))
	for _, order := range orders {
		userIDs = append(userIDs, order.UserID)
	}

	users, err := st.users.FindByIDs(ctx, uniqueIDs(userIDs))
	if err != nil {
		return err
	}

	for i := range responses {
		order, ok := orders[responses[i].OrderID]
		if !ok {
			continue
		}
		if user, ok := users[order.UserID]; ok {
			order.User = &user
		}
		responses[i].Order = &order
	}

	return nil
}

func (st store) hydrateCredits(ctx context.Context, credits []model.Credit) error {
	userIDs := make([]model.ID, 0, len(credits))
	for _, credit := range credits {
		userIDs = append(userIDs, credit.UserID)
	}

	users, err := st.users.FindByIDs(ctx, uniqueIDs(userIDs))
	if err != nil {
		return err
	}

	for i := range credits {
		if user, ok := users[credits[i].UserID]; ok {
			credits[i].User = &user
		}
	}

	return nil
}

func uniqueIDs(ids []model.ID) []model.ID {
	seen := make(map[model.ID]struct{}, len(ids))
	unique := make([]model.ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
