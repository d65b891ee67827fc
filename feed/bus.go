// Package feed fans store changes out to subscribers, in process or across
// instances through Redis or postgres notifications.
package feed

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/meinhoongagan/tutor-sessions/store"
)

// Bus carries store changes from writers to subscribers.
type Bus interface {
	store.Subscriber
	Publish(ctx context.Context, c store.Change) error
	Close() error
}

const channelPrefix = "tutor_sessions_"

func channelFor(e store.Entity) string {
	return channelPrefix + string(e)
}

var entities = []store.Entity{store.EntityAppointment, store.EntityContract}

func encode(c store.Change) ([]byte, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "feed: encode change")
	}
	return b, nil
}

func decode(payload []byte) (store.Change, error) {
	var c store.Change
	if err := json.Unmarshal(payload, &c); err != nil {
		return store.Change{}, errors.Wrap(err, "feed: decode change")
	}
	return c, nil
}
