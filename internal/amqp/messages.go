package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"workhours/internal/core"
)

// DaySyncMessage asks the worker to push one work day to the sheet.
// It carries only the date and version; the worker reads the row from the database.
type DaySyncMessage struct {
	MessageID string    `json:"messageId"`
	Date      string    `json:"date"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDaySyncMessage(date core.DateKey, version int64) *DaySyncMessage {
	return &DaySyncMessage{
		MessageID: uuid.NewString(),
		Date:      date.String(),
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *DaySyncMessage) DateKey() (core.DateKey, error) {
	return core.ParseDateKey(m.Date)
}

func (m *DaySyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DaySyncMessageFromJSON(data []byte) (*DaySyncMessage, error) {
	var msg DaySyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := msg.DateKey(); err != nil {
		return nil, fmt.Errorf("message date %q: %w", msg.Date, err)
	}
	return &msg, nil
}
