package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/davidkorte/freshpress-backend/api/responses"
	"github.com/davidkorte/freshpress-backend/api/validators"
	"github.com/davidkorte/freshpress-backend/internal/discrepancies"
	"github.com/davidkorte/freshpress-backend/pkg/enums"
	pkgerrors "github.com/davidkorte/freshpress-backend/pkg/errors"
	"github.com/davidkorte/freshpress-backend/pkg/logger"
)

type reportDiscrepancyRequest struct {
	OrderItemID *uuid.UUID `json:"order_item_id,omitempty"`
	ItemName    string     `json:"item_name" validate:"required"`
	ExpectedQty int        `json:"expected_qty" validate:"gte=0"`
	FoundQty    int        `json:"found_qty" validate:"gte=0"`
	Kind        string     `json:"kind" validate:"required,oneof=extra missing"`
	Reason      *string    `json:"reason,omitempty"`
}

type decideDiscrepancyRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
}

// ReportDiscrepancy files a facility-side count mismatch against an order.
func ReportDiscrepancy(svc discrepancies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discrepancies service unavailable"))
			return
		}

		actorID, _, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reportDiscrepancyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseDiscrepancyKind(req.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discrepancy kind"))
			return
		}

		item, err := svc.Report(r.Context(), discrepancies.ReportInput{
			OrderID:     orderID,
			OrderItemID: req.OrderItemID,
			ItemName:    req.ItemName,
			ExpectedQty: req.ExpectedQty,
			FoundQty:    req.FoundQty,
			Kind:        kind,
			Reason:      req.Reason,
			ActorID:     actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// DecideDiscrepancy records the customer's verdict on one reported mismatch.
func DecideDiscrepancy(svc discrepancies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discrepancies service unavailable"))
			return
		}

		actorID, _, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discrepancyID, err := parseUUIDParam(r, "discrepancyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req decideDiscrepancyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		decision, err := enums.ParseDiscrepancyDecision(req.Decision)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid decision"))
			return
		}

		item, err := svc.Decide(r.Context(), discrepancies.DecideInput{
			DiscrepancyID: discrepancyID,
			Decision:      decision,
			ActorID:       actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// ListOrderDiscrepancies returns every mismatch reported against an order.
func ListOrderDiscrepancies(svc discrepancies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discrepancies service unavailable"))
			return
		}

		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListForOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"discrepancies": items})
	}
}
