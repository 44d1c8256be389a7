package realtime

import "encoding/json"

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Event is one row mutation pushed to subscribed dashboard sessions. Old is
// only populated for updates and deletes.
type Event struct {
	Table string          `json:"table"`
	Type  EventType       `json:"type"`
	Old   json.RawMessage `json:"old,omitempty"`
	New   json.RawMessage `json:"new,omitempty"`
}

func NewEvent(table string, typ EventType, oldRow, newRow any) (Event, error) {
	ev := Event{Table: table, Type: typ}

	if oldRow != nil {
		data, err := json.Marshal(oldRow)
		if err != nil {
			return Event{}, err
		}
		ev.Old = data
	}
	if newRow != nil {
		data, err := json.Marshal(newRow)
		if err != nil {
			return Event{}, err
		}
		ev.New = data
	}
	return ev, nil
}
