package model

import "time"

// Identification methods accepted by the person directory.
const (
	IdentifyByBadge    = "badge"
	IdentifyByIDNumber = "id_number"
	IdentifyByPersonID = "person_id"
)

// Attendance is one physical presence interval: a person admitted to a room.
// A record existing with today's check_in_time is an active presence; check-out
// deletes the record and the deletion is propagated via a check-out event.
type Attendance struct {
	ID               string    `json:"id,omitempty" bson:"_id,omitempty"`
	PersonID         string    `json:"person_id" bson:"person_id"`
	RoomID           string    `json:"room_id" bson:"room_id"`
	CheckInTime      time.Time `json:"check_in_time" bson:"check_in_time"`
	IdempotencyToken string    `json:"idempotency_token,omitempty" bson:"idempotency_token,omitempty"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" bson:"updated_at"`
}

// RoomOccupancy is the per-(room, day) admission counter. Every admission
// increments it inside the same transaction that inserts the presence record,
// and every release decrements it, so concurrent admissions for one room
// contend on this single document.
type RoomOccupancy struct {
	RoomID    string    `bson:"room_id"`
	Day       time.Time `bson:"day"`
	Count     int64     `bson:"count"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// CheckInRequest identifies a person either by an external identifier
// (method + value) or by an already-known internal person id.
type CheckInRequest struct {
	Method           string `json:"method,omitempty" validate:"omitempty,oneof=badge id_number person_id"`
	Value            string `json:"value,omitempty" validate:"required_without=PersonID,omitempty,min=1,max=64"`
	PersonID         string `json:"person_id,omitempty" validate:"required_without=Value,omitempty,min=1,max=64"`
	RoomID           string `json:"room_id" validate:"required,min=1,max=64"`
	IdempotencyToken string `json:"idempotency_token,omitempty" validate:"omitempty,min=8,max=128"`
}

type CheckOutRequest struct {
	Method   string `json:"method,omitempty" validate:"omitempty,oneof=badge id_number person_id"`
	Value    string `json:"value,omitempty" validate:"required_without=PersonID,omitempty,min=1,max=64"`
	PersonID string `json:"person_id,omitempty" validate:"required_without=Value,omitempty,min=1,max=64"`
}

// Admission outcomes.
const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusReleased = "released"
)

// CheckInResult is the memoized outcome of one admission request. Retries
// presenting the same idempotency token observe this exact result.
type CheckInResult struct {
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	RecordID    string    `json:"record_id,omitempty"`
	PersonID    string    `json:"person_id,omitempty"`
	RoomID      string    `json:"room_id,omitempty"`
	CheckInTime time.Time `json:"check_in_time,omitempty"`
}

func (r *CheckInResult) Accepted() bool {
	return r.Status == StatusAccepted
}

type CheckOutResult struct {
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	RecordID     string    `json:"record_id,omitempty"`
	PersonID     string    `json:"person_id,omitempty"`
	RoomID       string    `json:"room_id,omitempty"`
	CheckInTime  time.Time `json:"check_in_time,omitempty"`
	CheckOutTime time.Time `json:"check_out_time,omitempty"`
}

func (r *CheckOutResult) Released() bool {
	return r.Status == StatusReleased
}

// Person is the directory snapshot this service consumes; master data is
// owned by the person directory service.
type Person struct {
	ID       string `json:"id"`
	Eligible bool   `json:"eligible"`
}

// Room is the directory snapshot with the capacity read at admission time.
type Room struct {
	ID       string `json:"id"`
	Capacity int    `json:"capacity"`
	Eligible bool   `json:"eligible"`
}
