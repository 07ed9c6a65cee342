package controllers

import (
	"net/http"

	"github.com/davidkorte/freshpress-backend/api/responses"
	"github.com/davidkorte/freshpress-backend/api/validators"
	"github.com/davidkorte/freshpress-backend/internal/fulfillment"
	"github.com/davidkorte/freshpress-backend/pkg/enums"
	pkgerrors "github.com/davidkorte/freshpress-backend/pkg/errors"
	"github.com/davidkorte/freshpress-backend/pkg/logger"
)

type advanceOrderRequest struct {
	Target string  `json:"target" validate:"required"`
	Reason *string `json:"reason,omitempty"`
}

// AdvanceOrderStatus moves an order to the requested status, subject to the
// transition rules for the caller's role.
func AdvanceOrderStatus(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		actorID, role, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req advanceOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseOrderStatus(req.Target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		order, err := svc.Advance(r.Context(), fulfillment.AdvanceInput{
			OrderID: orderID,
			Target:  target,
			ActorID: actorID,
			Role:    role,
			Reason:  req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
