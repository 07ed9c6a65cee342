package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/davidkorte/freshpress-backend/pkg/config"
	pkgerrors "github.com/davidkorte/freshpress-backend/pkg/errors"
)

// locationStore is the slice of the redis client the sink needs.
type locationStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	DriverLocationKey(driverID string) string
}

// Service is the driver location sink. Positions are ephemeral: last write
// wins, entries expire on their own, and nothing here touches the order state
// machine.
type Service interface {
	RecordLocation(ctx context.Context, input LocationInput) error
	LastLocation(ctx context.Context, driverID uuid.UUID) (*DriverLocation, error)
}

// LocationInput is one position report from a driver device.
type LocationInput struct {
	DriverID  uuid.UUID
	Latitude  float64
	Longitude float64
}

// DriverLocation is the stored position snapshot.
type DriverLocation struct {
	DriverID   uuid.UUID `json:"driver_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at"`
}

type service struct {
	store locationStore
	ttl   time.Duration
}

// NewService wires the telemetry sink.
func NewService(store locationStore, cfg config.TelemetryConfig) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("location store required")
	}
	ttl := cfg.LocationTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &service{store: store, ttl: ttl}, nil
}

func (s *service) RecordLocation(ctx context.Context, input LocationInput) error {
	if input.DriverID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	if input.Latitude < -90 || input.Latitude > 90 {
		return pkgerrors.New(pkgerrors.CodeValidation, "latitude out of range")
	}
	if input.Longitude < -180 || input.Longitude > 180 {
		return pkgerrors.New(pkgerrors.CodeValidation, "longitude out of range")
	}

	location := DriverLocation{
		DriverID:   input.DriverID,
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
		RecordedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(location)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode location")
	}

	key := s.store.DriverLocationKey(input.DriverID.String())
	if err := s.store.Set(ctx, key, data, s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store location")
	}
	return nil
}

func (s *service) LastLocation(ctx context.Context, driverID uuid.UUID) (*DriverLocation, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}

	raw, err := s.store.Get(ctx, s.store.DriverLocationKey(driverID.String()))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no recent location for driver")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load location")
	}

	var location DriverLocation
	if err := json.Unmarshal([]byte(raw), &location); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode location")
	}
	return &location, nil
}
