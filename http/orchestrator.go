package http

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"pricetier/db"
)

// DeviceStore is the record-persistence boundary seen by the orchestrator.
type DeviceStore interface {
	GetDevice(id string) (*db.DeviceRecord, error)
	SetPriceRange(id string, label int) (*db.DeviceRecord, error)
}

// NewSQLiteStore returns the DeviceStore backed by the db package.
func NewSQLiteStore() DeviceStore {
	return sqliteStore{}
}

// sqliteStore adapts the db package to DeviceStore.
type sqliteStore struct{}

func (sqliteStore) GetDevice(id string) (*db.DeviceRecord, error) {
	return db.GetDevice(id)
}

func (sqliteStore) SetPriceRange(id string, label int) (*db.DeviceRecord, error) {
	return db.SetPriceRange(id, label)
}

// Orchestrator runs the fetch-predict-persist workflow for one device. On
// any failure the stored record is left exactly as it was; the caller only
// ever observes the original or the fully updated record.
type Orchestrator struct {
	store  DeviceStore
	client PredictionClient
	logger *zap.Logger
}

func NewOrchestrator(store DeviceStore, client PredictionClient, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{store: store, client: client, logger: logger}
}

// PredictAndStore loads the device, asks the inference service for its
// price tier, and persists the label with the store's atomic update.
// Re-running on an unmodified device converges to the same stored label, so
// concurrent invocations are safe under last-write-wins.
func (o *Orchestrator) PredictAndStore(ctx context.Context, deviceID string) (*db.DeviceRecord, error) {
	record, err := o.store.GetDevice(deviceID)
	if err != nil {
		return nil, err
	}

	label, err := o.client.Predict(ctx, record.Spec)
	if err != nil {
		o.logger.Warn("prediction failed, record unchanged",
			zap.String("device_id", deviceID),
			zap.Error(err))
		return nil, err
	}

	updated, err := o.store.SetPriceRange(deviceID, label)
	if err != nil {
		return nil, errors.Wrapf(err, "persist price tier for device %s", deviceID)
	}

	o.logger.Info("price tier predicted",
		zap.String("device_id", deviceID),
		zap.Int("price_range", label))
	return updated, nil
}
