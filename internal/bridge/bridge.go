// Package bridge turns provider notifications into refresh triggers.
package bridge

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/tabcounter/schema"
)

var qualifying = func() map[schema.NotificationType]struct{} {
	set := make(map[schema.NotificationType]struct{}, len(schema.TreeNotificationTypes)+1)
	for _, typ := range schema.TreeNotificationTypes {
		set[typ] = struct{}{}
	}
	set[schema.NotifyTabActivated] = struct{}{}
	return set
}()

// Qualifies reports whether a notification type requests a refresh.
func Qualifies(typ schema.NotificationType) bool {
	_, ok := qualifying[typ]
	return ok
}

// Run forwards every qualifying notification from events to trigger until
// events is closed or ctx is done. Event types are not distinguished.
func Run(ctx context.Context, events <-chan schema.Notification, trigger func()) {
	log := pslog.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-events:
			if !ok {
				return
			}
			if !Qualifies(n.Type) {
				log.Trace("notification ignored", "type", string(n.Type), "source", n.Source)
				continue
			}
			log.Trace("notification", "type", string(n.Type), "source", n.Source)
			trigger()
		}
	}
}
