package deal

import "strings"

// Canonical Bitrix CRM event names. Routing is deliberately substring-based:
// the upstream event taxonomy is richer than the two handled cases and broad
// matching tolerates naming variants without an exhaustive enum.
const (
	EventDealUpdate = "ONCRMDEALUPDATE"
	EventDealAdd    = "ONCRMDEALADD"

	// EventUnknown is the default when the payload names no event.
	EventUnknown = "unknown"
)

// Kind classifies an inbound event for routing.
type Kind int

const (
	KindUnknown Kind = iota
	KindUpdate
	KindCreate
)

// InboundEvent is a normalized webhook payload: the declared event type and the
// resolved deal record.
type InboundEvent struct {
	Type string
	Deal Record
}

// Kind resolves the routing branch for the event type. UPDATE takes precedence
// over ADD when both substrings appear.
func (e InboundEvent) Kind() Kind {
	t := strings.ToUpper(e.Type)
	switch {
	case t == EventDealUpdate || strings.Contains(t, "UPDATE"):
		return KindUpdate
	case t == EventDealAdd || strings.Contains(t, "ADD"):
		return KindCreate
	default:
		return KindUnknown
	}
}

// ParseEvent normalizes an arbitrary JSON-like payload into an InboundEvent.
// The event type is read from "event" or "EVENT", defaulting to "unknown".
// The deal is resolved by trying, in order: payload.data.FIELDS, payload.FIELDS,
// and finally the payload itself. It fails with ErrMissingDealID when the
// resolved deal lacks an identifier.
func ParseEvent(payload map[string]any) (InboundEvent, error) {
	eventType := EventUnknown
	if t, ok := payload["event"].(string); ok && t != "" {
		eventType = t
	} else if t, ok := payload["EVENT"].(string); ok && t != "" {
		eventType = t
	}

	record, err := newRecord(resolveDealFields(payload))
	if err != nil {
		return InboundEvent{}, err
	}

	return InboundEvent{Type: eventType, Deal: record}, nil
}

func resolveDealFields(payload map[string]any) map[string]any {
	if data, ok := payload["data"].(map[string]any); ok {
		if fields, ok := data["FIELDS"].(map[string]any); ok {
			return fields
		}
	}
	if fields, ok := payload["FIELDS"].(map[string]any); ok {
		return fields
	}
	return payload
}
