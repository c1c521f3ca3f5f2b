package workflow

import (
	"context"
	"errors"

	"github.com/protomem/credit-bank/internal/database"
	"github.com/protomem/credit-bank/internal/metrics"
	"github.com/protomem/credit-bank/internal/model"
	"github.com/protomem/credit-bank/internal/vrules"
)

// CreateResponse answers an order with an offer and moves the order to
// processed. The unique constraint on responses.order_id is what rejects a
// concurrent second response; the lookup before the insert only saves a
// round trip in the common case.
func (s *Service) CreateResponse(ctx context.Context, p Principal, in model.ResponseInput) (model.Response, error) {
	if !p.Privileged {
		return model.Response{}, model.NewError("response", model.ErrForbidden)
	}

	in, err := vrules.ValidateResponse(in)
	if err != nil {
		return model.Response{}, err
	}

	var (
		response model.Response
		from     model.OrderStatus
	)
	err = s.inTx(ctx, func(st store) error {
		order, err := st.orders.GetForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}
		from = order.Status

		_, err = st.responses.GetByOrder(ctx, order.ID)
		switch {
		case err == nil:
			return model.NewError("response", model.ErrExists)
		case !errors.Is(err, model.ErrNotFound):
			return err
		}

		if err := model.CheckTransition(order.Status, model.StatusProcessed); err != nil {
			return err
		}

		id, err := st.responses.Insert(ctx, database.InsertResponseDTO{
			OrderID:    order.ID,
			Percent:    in.Percent,
			MonthlyPay: in.MonthlyPay,
		})
		if err != nil {
			return err
		}

		if err := st.orders.ChangeStatus(ctx, order.ID, model.StatusProcessed, false); err != nil {
			return err
		}

		response, err = st.responses.Get(ctx, id, nil)
		if err != nil {
			return err
		}

		return st.hydrateResponse(ctx, &response)
	})
	if err != nil {
		return model.Response{}, err
	}

	metrics.RecordEvent(metrics.EventResponseSent)
	metrics.RecordTransition(string(from), string(model.StatusProcessed))
	s.logger.Info("response sent", "responseId", response.ID, "orderId", response.OrderID)

	return response, nil
}

func (s *Service) GetResponse(ctx context.Context, p Principal, id model.ID) (model.Response, error) {
	var response model.Response
	err := s.inTx(ctx, func(st store) (err error) {
		response, err = st.responses.Get(ctx, id, Scope(p, nil, false))
		if err != nil {
			return err
		}

		return st.hydrateResponse(ctx, &response)
	})
	return response, err
}

func (s *Service) ListResponses(ctx context.Context, p Principal, query ListQuery) ([]model.Response, error) {
	filter := database.FindResponseFilter{
		UserID: Scope(p, query.UserID, query.Personal),
	}

	var responses []model.Response
	err := s.inTx(ctx, func(st store) (err error) {
		responses, err = st.responses.Find(ctx, filter, query.FindOptions)
		if err != nil {
			return err
		}

		return st.hydrateResponses(ctx, responses)
	})
	if err != nil {
		return []model.Response{}, err
	}

	return responses, nil
}

func (st store) hydrateResponse(ctx context.Context, response *model.Response) error {
	responses := []model.Response{*response}
	if err := st.hydrateResponses(ctx, responses); err != nil {
		return err
	}
	*response = responses[0]
	return nil
}
