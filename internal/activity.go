package internal

import (
	"context"
	"sync"

	"github.com/ytarchive/ytarchive/internal/event"
	"github.com/ytarchive/ytarchive/pkg/logger"
)

var activityLog = logger.Get("Activity")

// activityService listens for acquisition events and reports per-item
// progress as they arrive. Items of a collection may finish out of order
// when processed concurrently, so each line carries the item's position.
type activityService struct {
	*sync.Mutex
	messageChan event.HandlerChannel
	handled     int
}

// newActivityService subscribes to the event bus immediately, so no
// events are missed between construction and Run.
func newActivityService(eventBus event.EventHandler) *activityService {
	messageChan := make(event.HandlerChannel, 100)
	eventBus.RegisterHandlerChannel(messageChan,
		event.ITEM_DOWNLOADED, event.ITEM_PERSISTED, event.ITEM_FAILED, event.RUN_COMPLETE)

	return &activityService{
		Mutex:       &sync.Mutex{},
		messageChan: messageChan,
	}
}

// Run consumes events until the context is cancelled, at which point
// any events already queued are handled before returning.
func (service *activityService) Run(ctx context.Context) {
	messageChan := service.messageChan

	for {
		select {
		case ev := <-messageChan:
			service.handleEvent(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-messageChan:
					service.handleEvent(ev)
				default:
					return
				}
			}
		}
	}
}

func (service *activityService) handleEvent(ev event.HandlerEvent) {
	service.Lock()
	defer service.Unlock()

	switch payload := ev.Payload.(type) {
	case event.ItemPayload:
		switch ev.Event {
		case event.ITEM_DOWNLOADED:
			activityLog.Emit(logger.SUCCESS, "[#%d] Downloaded %s\n", payload.Index+1, payload.Filename)
		case event.ITEM_PERSISTED:
			activityLog.Emit(logger.NEW, "[#%d] Saved %s to %s\n", payload.Index+1, payload.Filename, payload.Table)
		case event.ITEM_FAILED:
			activityLog.Emit(logger.WARNING, "[#%d] %s failed during %s\n", payload.Index+1, payload.URL, payload.Stage)
		}
	case event.RunPayload:
		activityLog.Emit(logger.INFO, "Run %s finished: %d/%d downloaded, %d persisted, %d failed\n",
			payload.RunID, payload.Downloaded, payload.Items, payload.Persisted, payload.Failures)
	}

	service.handled++
}

// Handled returns the number of events handled so far.
func (service *activityService) Handled() int {
	service.Lock()
	defer service.Unlock()
	return service.handled
}
