package projector

import (
	"encoding/json"
	"time"

	"github.com/swarmhive/swarmhive/internal/types"
)

func newTestEvent(eventType types.EventType, data interface{}) (*types.Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &types.Event{
		Type:        eventType,
		TimestampMs: time.Now().UnixMilli(),
		Data:        json.RawMessage(payload),
	}, nil
}

func withProject(event *types.Event, projectKey string) *types.Event {
	event.ProjectKey = projectKey
	return event
}
