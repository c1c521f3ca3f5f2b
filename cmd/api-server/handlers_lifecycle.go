package main

import (
	"net/http"

	"github.com/protomem/credit-bank/internal/model"
	"github.com/protomem/credit-bank/internal/request"
	"github.com/protomem/credit-bank/internal/response"
	"github.com/protomem/credit-bank/internal/validator"
	"github.com/protomem/credit-bank/internal/workflow"
)

// Handle Create Order
// POST /api/v1/orders
func (app *application) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)

	var input model.OrderInput
	if err := request.DecodeJSONStrict(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	order, err := app.serviceFor(r).CreateOrder(r.Context(), principal, input)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusCreated, order); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle List Orders
// GET /api/v1/orders?user_id=&personal=&new=
func (app *application) handleListOrders(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)

	listQuery, err := listQueryFromRequest(r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	onlyNew, err := boolQueryParams(r, "new")
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	orders, err := app.serviceFor(r).ListOrders(r.Context(), principal, workflow.OrderQuery{
		ListQuery: listQuery,
		OnlyNew:   onlyNew,
	})
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, orders); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle Get Order
// GET /api/v1/orders/{orderId}
func (app *application) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)

	orderID, err := orderIDFromRequest(r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	order, err := app.serviceFor(r).GetOrder(r.Context(), principal, orderID)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, order); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle Patch Order
// PATCH /api/v1/orders/{orderId}?status=&active=
func (app *application) handlePatchOrder(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)

	orderID, err := orderIDFromRequest(r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	var change workflow.StatusChange

	if change.Active, err = optionalBoolQueryParams(r, "active"); err != nil {
		app.badRequest(w, r, err)
		return
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := model.ParseOrderStatus(raw)
		if err != nil {
			var v validator.Validator
			v.AddFieldError("status", "must be one of submitted, processed, issued")
			app.failedValidation(w, r, v.Err().(*validator.Error))
			return
		}
		change.Status = &status
	}

	order, err := app.serviceFor(r).ChangeOrderStatus(r.Context(), principal, orderID, change)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, order); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle Create Response
// POST /api/v1/responses
func (app *application) handleCreateResponse(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)

	var input model.ResponseInput
	if err := request.DecodeJSONStrict(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	resp, err := app.serviceFor(r).CreateResponse(r.Context(), principal, input)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusCreated, resp); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle List Responses
// GET /api/v1/responses?user_id=&personal=
func (app *application) handleListResponses(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)

	listQuery, err := listQueryFromRequest(r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	responses, err := app.serviceFor(r).ListResponses(r.Context(), principal, listQuery)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, responses); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle Get Response
// GET /api/v1/responses/{responseId}
func (app *application) handleGetResponse(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)

	responseID, err := responseIDFromRequest(r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	resp, err := app.serviceFor(r).GetResponse(r.Context(), principal, responseID)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, resp); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle Create Credit
// POST /api/v1/credits
func (app *application) handleCreateCredit(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)

	var input model.CreditInput
	if err := request.DecodeJSONStrict(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	credit, err := app.serviceFor(r).CreateCredit(r.Context(), principal, input)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusCreated, credit); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle List Credits
// GET /api/v1/credits?user_id=&personal=
func (app *application) handleListCredits(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)

	listQuery, err := listQueryFromRequest(r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	credits, err := app.serviceFor(r).ListCredits(r.Context(), principal, listQuery)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, credits); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle Get Credit
// GET /api/v1/credits/{creditId}
func (app *application) handleGetCredit(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)

	creditID, err := creditIDFromRequest(r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	credit, err := app.serviceFor(r).GetCredit(r.Context(), principal, creditID)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, credit); err != nil {
		app.serverError(w, r, err)
	}
}
