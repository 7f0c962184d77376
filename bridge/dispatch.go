package bridge

import (
	"go.uber.org/zap"

	"github.com/blocinbloc/native-bluetooth/api/bluetooth"
	"github.com/blocinbloc/native-bluetooth/api/eventbus"
)

// dispatch delivers queued events to the host, in publish order,
// until the event bus is closed.
func (b *Bridge) dispatch(sub eventbus.SubscriberID) {
	defer close(b.dispatchDone)

	for data := range sub.C {
		event, ok := data.(bluetooth.HostEvent)
		if !ok {
			continue
		}

		b.deliver(event)
	}
}

func (b *Bridge) deliver(event bluetooth.HostEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Host dispatcher panicked",
				zap.String("method", event.Method),
				zap.Any("panic", r),
			)
		}
	}()

	b.host.SendEventToHost(event.Method, event.Payload)
	b.delivered.Inc()
}
