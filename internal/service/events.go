package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
	"github.com/noah-isme/faculty-scheduler-api/pkg/middleware/requestid"
)

type eventEmitter interface {
	Emit(ctx context.Context, event models.Event) error
}

// emitEvent publishes an event; delivery failures are logged and never surface to callers.
func emitEvent(ctx context.Context, emitter eventEmitter, logger *zap.Logger, action, resource, resourceID, actor string, payload interface{}) {
	if emitter == nil {
		return
	}
	event := models.Event{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Actor:      actor,
		RequestID:  requestid.FromContext(ctx),
		Timestamp:  time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			logger.Warn("encode event payload", zap.String("action", action), zap.Error(err))
		} else {
			event.Payload = raw
		}
	}
	if err := emitter.Emit(ctx, event); err != nil {
		logger.Warn("emit event failed",
			zap.String("action", action),
			zap.String("resource_id", resourceID),
			zap.Error(err))
	}
}

func pagination(limit, offset, total int) *models.Pagination {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return &models.Pagination{Limit: limit, Offset: offset, Total: total}
}
