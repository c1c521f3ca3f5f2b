package workflow

import (
	"context"

	"github.com/protomem/credit-bank/internal/database"
	"github.com/protomem/credit-bank/internal/metrics"
	"github.com/protomem/credit-bank/internal/model"
	"github.com/protomem/credit-bank/internal/vrules"
)

// CreateOrder submits a credit application. UserID defaults to the caller;
// only specialists may submit on behalf of someone else.
func (s *Service) CreateOrder(ctx context.Context, p Principal, in model.OrderInput) (model.Order, error) {
	userID, err := p.targetUser(in.UserID)
	if err != nil {
		return model.Order{}, model.NewError("order", err)
	}
	in.UserID = userID

	in, err = vrules.ValidateOrder(in)
	if err != nil {
		return model.Order{}, err
	}

	var order model.Order
	err = s.inTx(ctx, func(st store) error {
		id, err := st.orders.Insert(ctx, database.NewInsertOrderDTO(in))
		if err != nil {
			return err
		}

		order, err = st.orders.Get(ctx, id, nil)
		if err != nil {
			return err
		}

		return st.hydrateOrder(ctx, &order)
	})
	if err != nil {
		return model.Order{}, err
	}

	metrics.RecordEvent(metrics.EventOrderSubmitted)
	s.logger.Info("order submitted", "orderId", order.ID, "userId", order.UserID)

	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, p Principal, id model.ID) (model.Order, error) {
	var order model.Order
	err := s.inTx(ctx, func(st store) (err error) {
		order, err = st.orders.Get(ctx, id, Scope(p, nil, false))
		if err != nil {
			return err
		}

		return st.hydrateOrder(ctx, &order)
	})
	return order, err
}

func (s *Service) ListOrders(ctx context.Context, p Principal, query OrderQuery) ([]model.Order, error) {
	filter := database.FindOrderFilter{
		UserID:     Scope(p, query.UserID, query.Personal),
		OnlyActive: query.OnlyNew,
	}

	var orders []model.Order
	err := s.inTx(ctx, func(st store) (err error) {
		orders, err = st.orders.Find(ctx, filter, query.FindOptions)
		if err != nil {
			return err
		}

		return st.hydrateOrders(ctx, orders)
	})
	if err != nil {
		return []model.Order{}, err
	}

	return orders, nil
}

// StatusChange carries the optional parts of an order update. Nil fields keep
// their current value.
type StatusChange struct {
	Status *model.OrderStatus
	Active *bool
}

func (s *Service) ChangeOrderStatus(ctx context.Context, p Principal, id model.ID, change StatusChange) (model.Order, error) {
	if !p.Privileged {
		return model.Order{}, model.NewError("order", model.ErrForbidden)
	}

	var (
		order model.Order
		from  model.OrderStatus
	)
	err := s.inTx(ctx, func(st store) error {
		current, err := st.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = current.Status

		status, active := current.Status, current.Active
		if change.Status != nil {
			status = *change.Status
		}
		if change.Active != nil {
			active = *change.Active
		}

		if err := model.CheckTransition(current.Status, status); err != nil {
			return err
		}

		if err := st.orders.ChangeStatus(ctx, id, status, active); err != nil {
			return err
		}

		order, err = st.orders.Get(ctx, id, nil)
		if err != nil {
			return err
		}

		return st.hydrateOrder(ctx, &order)
	})
	if err != nil {
		return model.Order{}, err
	}

	metrics.RecordTransition(string(from), string(order.Status))
	s.logger.Info("order status changed", "orderId", id, "from", from, "to", order.Status, "active", order.Active)

	return order, nil
}

func (st store) hydrateOrder(ctx context.Context, order *model.Order) error {
	orders := []model.Order{*order}
	if err := st.hydrateOrders(ctx, orders); err != nil {
		return err
	}
	*order = orders[0]
	return nil
}
