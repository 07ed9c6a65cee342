package controllers

import (
	"net/http"

	"github.com/davidkorte/freshpress-backend/api/responses"
	"github.com/davidkorte/freshpress-backend/api/validators"
	"github.com/davidkorte/freshpress-backend/internal/scans"
	"github.com/davidkorte/freshpress-backend/internal/telemetry"
	"github.com/davidkorte/freshpress-backend/pkg/enums"
	pkgerrors "github.com/davidkorte/freshpress-backend/pkg/errors"
	"github.com/davidkorte/freshpress-backend/pkg/logger"
)

type scanRequest struct {
	Code string `json:"code" validate:"required"`
	Kind string `json:"kind" validate:"required"`
}

type proofRequest struct {
	Note     *string `json:"note,omitempty"`
	PhotoURL *string `json:"photo_url,omitempty"`
}

type locationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ScanVerify records a checkpoint scan and advances the order when it passes.
func ScanVerify(svc scans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scans service unavailable"))
			return
		}

		agentID, _, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req scanRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseScanKind(req.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid scan kind"))
			return
		}

		result, err := svc.Verify(r.Context(), scans.VerifyInput{
			Code:    req.Code,
			Kind:    kind,
			AgentID: agentID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SubmitProof attaches the proof of delivery to a delivered order.
func SubmitProof(svc scans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scans service unavailable"))
			return
		}

		agentID, _, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req proofRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		proof, err := svc.SubmitProof(r.Context(), scans.ProofInput{
			OrderID:  orderID,
			AgentID:  agentID,
			Note:     req.Note,
			PhotoURL: req.PhotoURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, proof)
	}
}

// RecordLocation stores the driver's current position.
func RecordLocation(svc telemetry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "telemetry service unavailable"))
			return
		}

		driverID, _, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req locationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RecordLocation(r.Context(), telemetry.LocationInput{
			DriverID:  driverID,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "recorded"})
	}
}

// DriverLastLocation returns the most recent position for one driver.
func DriverLastLocation(svc telemetry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "telemetry service unavailable"))
			return
		}

		driverID, err := parseUUIDParam(r, "driverId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		location, err := svc.LastLocation(r.Context(), driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, location)
	}
}
