package validator

import (
	"io"
	"testing"

	"roomtrack/pkg/logger"
	"roomtrack/pkg/model"
)

func newTestValidator() *AttendanceValidator {
	return NewAttendanceValidator(logger.New(logger.Config{Output: io.Discard}))
}

func TestValidateCheckIn(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		req     model.CheckInRequest
		wantErr bool
	}{
		{
			name: "badge identification",
			req:  model.CheckInRequest{Method: "badge", Value: "B-1234", RoomID: "r1"},
		},
		{
			name: "id number identification",
			req:  model.CheckInRequest{Method: "id_number", Value: "123456789", RoomID: "r1"},
		},
		{
			name: "person id identification",
			req:  model.CheckInRequest{PersonID: "p1", RoomID: "r1"},
		},
		{
			name: "value without method defaults later",
			req:  model.CheckInRequest{Value: "B-1234", RoomID: "r1"},
		},
		{
			name: "with client token",
			req:  model.CheckInRequest{PersonID: "p1", RoomID: "r1", IdempotencyToken: "token-12345678"},
		},
		{
			name:    "missing room id",
			req:     model.CheckInRequest{PersonID: "p1"},
			wantErr: true,
		},
		{
			name:    "no identification at all",
			req:     model.CheckInRequest{RoomID: "r1"},
			wantErr: true,
		},
		{
			name:    "both identification paths",
			req:     model.CheckInRequest{PersonID: "p1", Value: "B-1234", RoomID: "r1"},
			wantErr: true,
		},
		{
			name:    "unknown method",
			req:     model.CheckInRequest{Method: "retina", Value: "x", RoomID: "r1"},
			wantErr: true,
		},
		{
			name:    "method mismatch with person id",
			req:     model.CheckInRequest{Method: "badge", PersonID: "p1", RoomID: "r1"},
			wantErr: true,
		},
		{
			name:    "token too short",
			req:     model.CheckInRequest{PersonID: "p1", RoomID: "r1", IdempotencyToken: "short"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateCheckIn(&tt.req)
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestValidateCheckOut(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		req     model.CheckOutRequest
		wantErr bool
	}{
		{
			name: "person id",
			req:  model.CheckOutRequest{PersonID: "p1"},
		},
		{
			name: "badge",
			req:  model.CheckOutRequest{Method: "badge", Value: "B-1234"},
		},
		{
			name:    "no identification",
			req:     model.CheckOutRequest{},
			wantErr: true,
		},
		{
			name:    "both identification paths",
			req:     model.CheckOutRequest{PersonID: "p1", Value: "B-1234"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateCheckOut(&tt.req)
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
