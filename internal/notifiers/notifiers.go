// Package notifiers holds the sinks that receive reading and surge
// notifications from the distributor.
package notifiers

import (
	"context"
	"sync"

	"github.com/chrissnell/tidewatch/internal/log"
	"github.com/chrissnell/tidewatch/internal/types"
)

// Engine is a notification sink. StartEngine launches the sink's processing
// goroutine and returns the channel it reads from.
type Engine interface {
	StartEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.Notification
	Name() string
}

// ProcessNotifications provides a standard pattern for processing notifications from a channel
func ProcessNotifications(ctx context.Context, wg *sync.WaitGroup, c <-chan types.Notification, processor func(types.Notification) error, name string) {
	defer wg.Done()

	for {
		select {
		case n := <-c:
			if err := processor(n); err != nil {
				log.Errorf("%s notification processor error: %v", name, err)
			}
		case <-ctx.Done():
			log.Infof("cancellation request received. Cancelling %s notification processor", name)
			return
		}
	}
}
