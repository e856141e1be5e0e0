package model

import "time"

// Event types carried in the event-type header on the presence topic.
const (
	EventTypeCheckedIn  = "attendance.checked_in"
	EventTypeCheckedOut = "attendance.checked_out"
)

// CheckInEvent is published after an admission commits. Delivery is
// best-effort; downstream consumers dedupe by record id.
type CheckInEvent struct {
	RecordID    string    `json:"record_id"`
	PersonID    string    `json:"person_id"`
	RoomID      string    `json:"room_id"`
	CheckInTime time.Time `json:"check_in_time"`
}

// CheckOutEvent carries both ends of the presence interval; it is the only
// durable trace of the interval once the ledger record is deleted.
type CheckOutEvent struct {
	RecordID     string    `json:"record_id"`
	PersonID     string    `json:"person_id"`
	RoomID       string    `json:"room_id"`
	CheckInTime  time.Time `json:"check_in_time"`
	CheckOutTime time.Time `json:"check_out_time"`
}
