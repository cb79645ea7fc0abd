package api

import (
	"creamery/internal/models"
	"creamery/internal/realtime"
	"creamery/internal/scheduling"
)

// EventPublisher forwards scheduler events to websocket subscribers in the
// same JSON shape the REST handlers return.
type EventPublisher struct {
	hub *realtime.Hub
}

func NewEventPublisher(hub *realtime.Hub) *EventPublisher {
	return &EventPublisher{hub: hub}
}

func (p *EventPublisher) Publish(owner, eventType string, payload interface{}) {
	if p.hub == nil {
		return
	}
	p.hub.Publish(owner, eventType, eventPayload(payload))
}

func eventPayload(payload interface{}) interface{} {
	switch v := payload.(type) {
	case *models.ProductionBlock:
		return blockView(v)
	case []*models.ProductionBlock:
		return blockPtrViews(v)
	case []models.ProductionBlock:
		return blockViews(v)
	case *scheduling.GenerateResult:
		return generateView(v)
	default:
		return payload
	}
}
