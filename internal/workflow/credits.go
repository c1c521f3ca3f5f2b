package workflow

import (
	"context"

	"github.com/protomem/credit-bank/internal/database"
	"github.com/protomem/credit-bank/internal/metrics"
	"github.com/protomem/credit-bank/internal/model"
	"github.com/protomem/credit-bank/internal/validator"
	"github.com/protomem/credit-bank/internal/vrules"
)

// CreateCredit opens a credit for a user. Borrowers may only open credits for
// themselves. When the input names the accepted response, the response's order
// must belong to the same user, the credit terms must repeat the offer and the
// order is moved to issued in the same transaction.
func (s *Service) CreateCredit(ctx context.Context, p Principal, in model.CreditInput) (model.Credit, error) {
	userID, err := p.targetUser(in.UserID)
	if err != nil {
		return model.Credit{}, model.NewError("credit", err)
	}
	in.UserID = userID

	in, err = vrules.ValidateCredit(in)
	if err != nil {
		return model.Credit{}, err
	}

	var (
		credit model.Credit
		issued *model.Order
	)
	err = s.inTx(ctx, func(st store) error {
		if in.ResponseID != nil {
			order, err := st.lockAcceptedOrder(ctx, in)
			if err != nil {
				return err
			}
			issued = &order
		}

		id, err := st.credits.Insert(ctx, database.NewInsertCreditDTO(in))
		if err != nil {
			return err
		}

		if issued != nil {
			if err := st.orders.ChangeStatus(ctx, issued.ID, model.StatusIssued, false); err != nil {
				return err
			}
		}

		credit, err = st.credits.Get(ctx, id, nil)
		if err != nil {
			return err
		}

		return st.hydrateCredit(ctx, &credit)
	})
	if err != nil {
		return model.Credit{}, err
	}

	metrics.RecordEvent(metrics.EventCreditIssued)
	if issued != nil {
		metrics.RecordTransition(string(issued.Status), string(model.StatusIssued))
	}
	s.logger.Info("credit issued", "creditId", credit.ID, "userId", credit.UserID)

	return credit, nil
}

// lockAcceptedOrder loads and locks the order behind the accepted response and
// checks that it can be issued on the terms of in.
func (st store) lockAcceptedOrder(ctx context.Context, in model.CreditInput) (model.Order, error) {
	response, err := st.responses.Get(ctx, *in.ResponseID, nil)
	if err != nil {
		return model.Order{}, err
	}

	order, err := st.orders.GetForUpdate(ctx, response.OrderID)
	if err != nil {
		return model.Order{}, err
	}

	var v validator.Validator
	if order.UserID != in.UserID {
		v.AddFieldError("response_id", "must belong to an order of the same user")
		return model.Order{}, v.Err()
	}

	v.CheckField(in.Percent.Equal(response.Percent), "percent", "must match the accepted response")
	v.CheckField(in.MonthlyPay.Equal(response.MonthlyPay), "monthly_pay", "must match the accepted response")
	v.CheckField(in.RemainToPay.Equal(order.CreditSize), "remain_to_pay", "must equal the credit size of the order")
	if err := v.Err(); err != nil {
		return model.Order{}, err
	}

	if err := model.CheckTransition(order.Status, model.StatusIssued); err != nil {
		return model.Order{}, err
	}

	return order, nil
}

func (s *Service) GetCredit(ctx context.Context, p Principal, id model.ID) (model.Credit, error) {
	var credit model.Credit
	err := s.inTx(ctx, func(st store) (err error) {
		credit, err = st.credits.Get(ctx, id, Scope(p, nil, false))
		if err != nil {
			return err
		}

		return st.hydrateCredit(ctx, &credit)
	})
	return credit, err
}

func (s *Service) ListCredits(ctx context.Context, p Principal, query ListQuery) ([]model.Credit, error) {
	filter := database.FindCreditFilter{
		UserID: Scope(p, query.UserID, query.Personal),
	}

	var credits []model.Credit
	err := s.inTx(ctx, func(st store) (err error) {
		credits, err = st.credits.Find(ctx, filter, query.FindOptions)
		if err != nil {
			return err
		}

		return st.hydrateCredits(ctx, credits)
	})
	if err != nil {
		return []model.Credit{}, err
	}

	return credits, nil
}

func (st store) hydrateCredit(ctx context.Context, credit *model.Credit) error {
	credits := []model.Credit{*credit}
	if err := st.hydrateCredits(ctx, credits); err != nil {
		return err
	}
	*credit = credits[0]
	return nil
}
