package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/pkg/logger"
	pkgEvents "premarket-access-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPubSub() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
}

func sampleGrant() *entity.GrantAccess {
	return &entity.GrantAccess{
		Id:            uuid.New(),
		RequestId:     "R1",
		AgentId:       uuid.New(),
		Status:        entity.GrantStatusPaid,
		PaymentStatus: entity.PaymentStatusSucceeded,
		ChargeAmount:  50,
		Currency:      "USD",
	}
}

func TestBusDispatcherPublishesToTopic(t *testing.T) {
	pubSub := newPubSub()
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, err := pubSub.Subscribe(ctx, Topic)
	require.NoError(t, err)

	d := NewBusDispatcher(pubSub, logger.NewNopLogger())
	g := sampleGrant()
	d.AccessUnlocked(ctx, g)

	select {
	case msg := <-messages:
		msg.Ack()
		var evt pkgEvents.BaseEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &evt))
		assert.Equal(t, pkgEvents.TypeGrantAccessUnlocked, evt.Type)
		assert.Equal(t, "unlocked:"+g.Id.String(), evt.Id)
		assert.Equal(t, g.Id.String(), evt.Data["grant_id"])
		assert.Equal(t, pkgEvents.TypeGrantAccessUnlocked, msg.Metadata.Get("event_type"))
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []pkgEvents.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event pkgEvents.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var res []string
	for _, e := range p.events {
		res = append(res, e.EventType())
	}
	return res
}

func TestRelayForwardsToExternalBus(t *testing.T) {
	pubSub := newPubSub()
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	external := &recordingPublisher{}
	relay := NewRelay(pubSub, external, logger.NewNopLogger())
	go func() {
		_ = relay.Run(ctx)
	}()

	d := NewBusDispatcher(pubSub, logger.NewNopLogger())
	g := sampleGrant()

	// the relay subscribes asynchronously; republish until it is listening
	assert.Eventually(t, func() bool {
		if len(external.types()) == 0 {
			d.PaymentFailed(ctx, g, true)
		}
		return len(external.types()) > 0
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, pkgEvents.TypePaymentFailed, external.types()[0])
}
