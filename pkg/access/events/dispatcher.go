package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/pkg/logger"
	pkgEvents "premarket-access-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Topic is the in-process topic carrying grant lifecycle events
const Topic = "grant-access-events"

// Dispatcher announces committed grant lifecycle changes. Calls are fire and
// forget: a delivery failure never undoes the state change.
type Dispatcher interface {
	AccessUnlocked(ctx context.Context, g *entity.GrantAccess)
	PaymentFailed(ctx context.Context, g *entity.GrantAccess, exhausted bool)
	GrantRejected(ctx context.Context, g *entity.GrantAccess)
}

type BusDispatcher struct {
	publisher message.Publisher
	logger    logger.ILogger
	now       func() time.Time
}

func NewBusDispatcher(publisher message.Publisher, logger logger.ILogger) *BusDispatcher {
	return &BusDispatcher{
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (d *BusDispatcher) AccessUnlocked(ctx context.Context, g *entity.GrantAccess) {
	d.publish(pkgEvents.BaseEvent{
		Id:         "unlocked:" + g.Id.String(),
		Type:       pkgEvents.TypeGrantAccessUnlocked,
		Data:       grantData(g),
		OccurredAt: d.now(),
	})
}

func (d *BusDispatcher) PaymentFailed(ctx context.Context, g *entity.GrantAccess, exhausted bool) {
	data := grantData(g)
	data["exhausted"] = exhausted
	d.publish(pkgEvents.BaseEvent{
		Id:         fmt.Sprintf("payment_failed:%s:%d", g.Id, g.Attempts),
		Type:       pkgEvents.TypePaymentFailed,
		Data:       data,
		OccurredAt: d.now(),
	})
}

func (d *BusDispatcher) GrantRejected(ctx context.Context, g *entity.GrantAccess) {
	d.publish(pkgEvents.BaseEvent{
		Id:         "rejected:" + g.Id.String(),
		Type:       pkgEvents.TypeGrantRejected,
		Data:       grantData(g),
		OccurredAt: d.now(),
	})
}

func (d *BusDispatcher) publish(evt pkgEvents.BaseEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		d.logger.Error(logger.ModuleEvents, "Failed to encode event", map[string]interface{}{"type": evt.Type, "error": err.Error()})
		return
	}

	msg := message.NewMessage(evt.Id, payload)
	msg.Metadata.Set("event_type", evt.Type)

	if err := d.publisher.Publish(Topic, msg); err != nil {
		d.logger.Error(logger.ModuleEvents, "Failed to dispatch event", map[string]interface{}{"type": evt.Type, "error": err.Error()})
		return
	}
	d.logger.Debug(logger.ModuleEvents, "Event dispatched", map[string]interface{}{"type": evt.Type, "id": evt.Id})
}

func grantData(g *entity.GrantAccess) map[string]interface{} {
	return map[string]interface{}{
		"grant_id":         g.Id.String(),
		"request_id":       g.RequestId,
		"agent_id":         g.AgentId.String(),
		"status":           string(g.Status),
		"payment_status":   string(g.PaymentStatus),
		"charge_amount":    g.ChargeAmount,
		"currency":         g.Currency,
		"attempts":         g.Attempts,
		"rejection_reason": g.RejectionReason,
	}
}
