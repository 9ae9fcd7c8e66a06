package notify

import "encoding/json"

// naturalIDFields are payload fields accepted as a natural identifier, in
// preference order.
var naturalIDFields = []string{"id", "order_id", "orderId", "group_id", "groupId", "entity_id", "entityId"}

// Key derives the debounce key for an event. Preference: explicit entity id,
// then a natural identifier embedded in the payload, then the serialized
// payload itself. The last fallback means two structurally identical events
// without ids collapse into one notification; that approximation is
// intentional (the point is to avoid noisy duplicate alerts).
func Key(eventType, entityID string, payload any) string {
	if entityID != "" {
		return eventType + ":" + entityID
	}
	if payload == nil {
		return eventType
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return eventType
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err == nil {
		for _, name := range naturalIDFields {
			if id, ok := fields[name].(string); ok && id != "" {
				return eventType + ":" + id
			}
		}
	}
	return eventType + ":" + string(raw)
}
