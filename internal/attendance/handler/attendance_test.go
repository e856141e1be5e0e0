package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	attendanceerrors "roomtrack/internal/attendance/errors"
	"roomtrack/internal/attendance/validator"
	apperrors "roomtrack/pkg/errors"
	"roomtrack/pkg/logger"
	"roomtrack/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type stubService struct {
	checkInFn  func(ctx context.Context, req *model.CheckInRequest) (*model.CheckInResult, error)
	checkOutFn func(ctx context.Context, req *model.CheckOutRequest) (*model.CheckOutResult, error)
	listFn     func(ctx context.Context, roomID string, limit int, offset int64) ([]*model.Attendance, int64, error)
}

func (s *stubService) CheckIn(ctx context.Context, req *model.CheckInRequest) (*model.CheckInResult, error) {
	return s.checkInFn(ctx, req)
}

func (s *stubService) CheckOut(ctx context.Context, req *model.CheckOutRequest) (*model.CheckOutResult, error) {
	return s.checkOutFn(ctx, req)
}

func (s *stubService) ListRoomToday(ctx context.Context, roomID string, limit int, offset int64) ([]*model.Attendance, int64, error) {
	return s.listFn(ctx, roomID, limit, offset)
}

func newTestRouter(svc *stubService) *httprouter.Router {
	log := logger.New(logger.Config{Output: io.Discard})
	h := NewAttendanceHandler(svc, validator.NewAttendanceValidator(log), log)
	router := httprouter.New()
	h.RegisterRoutes(router)
	return router
}

func postJSON(t *testing.T, router *httprouter.Router, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCheckInAcceptedReturns201(t *testing.T) {
	svc := &stubService{
		checkInFn: func(_ context.Context, req *model.CheckInRequest) (*model.CheckInResult, error) {
			return &model.CheckInResult{
				Status:      model.StatusAccepted,
				RecordID:    "rec-1",
				PersonID:    req.PersonID,
				RoomID:      req.RoomID,
				CheckInTime: time.Now().UTC(),
			}, nil
		},
	}
	router := newTestRouter(svc)

	rec := postJSON(t, router, "/api/v1/attendance/check-in", model.CheckInRequest{PersonID: "p1", RoomID: "r1"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data model.CheckInResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.RecordID != "rec-1" {
		t.Fatalf("unexpected record id: %s", resp.Data.RecordID)
	}
}

func TestCheckInRejectedReturns409(t *testing.T) {
	svc := &stubService{
		checkInFn: func(_ context.Context, _ *model.CheckInRequest) (*model.CheckInResult, error) {
			return &model.CheckInResult{
				Status: model.StatusRejected,
				Reason: attendanceerrors.ReasonCapacityExceeded,
			}, nil
		},
	}
	router := newTestRouter(svc)

	rec := postJSON(t, router, "/api/v1/attendance/check-in", model.CheckInRequest{PersonID: "p1", RoomID: "r1"})

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data model.CheckInResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.Reason != attendanceerrors.ReasonCapacityExceeded {
		t.Fatalf("unexpected reason: %s", resp.Data.Reason)
	}
}

func TestCheckInLockTimeoutReturns503(t *testing.T) {
	svc := &stubService{
		checkInFn: func(_ context.Context, _ *model.CheckInRequest) (*model.CheckInResult, error) {
			return nil, apperrors.LockTimeout("p1:r1", nil)
		},
	}
	router := newTestRouter(svc)

	rec := postJSON(t, router, "/api/v1/attendance/check-in", model.CheckInRequest{PersonID: "p1", RoomID: "r1"})

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on a retryable failure")
	}
}

func TestCheckInInvalidBodyReturns400(t *testing.T) {
	svc := &stubService{
		checkInFn: func(_ context.Context, _ *model.CheckInRequest) (*model.CheckInResult, error) {
			t.Fatal("service must not be called for an invalid body")
			return nil, nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/check-in", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCheckInValidationFailureReturns422(t *testing.T) {
	svc := &stubService{
		checkInFn: func(_ context.Context, _ *model.CheckInRequest) (*model.CheckInResult, error) {
			t.Fatal("service must not be called for an invalid request")
			return nil, nil
		},
	}
	router := newTestRouter(svc)

	// Missing room_id.
	rec := postJSON(t, router, "/api/v1/attendance/check-in", model.CheckInRequest{PersonID: "p1"})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCheckOutReleasedReturns200(t *testing.T) {
	now := time.Now().UTC()
	svc := &stubService{
		checkOutFn: func(_ context.Context, _ *model.CheckOutRequest) (*model.CheckOutResult, error) {
			return &model.CheckOutResult{
				Status:       model.StatusReleased,
				RecordID:     "rec-1",
				PersonID:     "p1",
				RoomID:       "r1",
				CheckInTime:  now.Add(-time.Hour),
				CheckOutTime: now,
			}, nil
		},
	}
	router := newTestRouter(svc)

	rec := postJSON(t, router, "/api/v1/attendance/check-out", model.CheckOutRequest{PersonID: "p1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCheckOutRejectedReturns409(t *testing.T) {
	svc := &stubService{
		checkOutFn: func(_ context.Context, _ *model.CheckOutRequest) (*model.CheckOutResult, error) {
			return &model.CheckOutResult{
				Status: model.StatusRejected,
				Reason: attendanceerrors.ReasonNoActivePresence,
			}, nil
		},
	}
	router := newTestRouter(svc)

	rec := postJSON(t, router, "/api/v1/attendance/check-out", model.CheckOutRequest{PersonID: "p1"})

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRoomTodayPagination(t *testing.T) {
	var gotLimit int
	var gotOffset int64
	svc := &stubService{
		listFn: func(_ context.Context, roomID string, limit int, offset int64) ([]*model.Attendance, int64, error) {
			if roomID != "r1" {
				t.Fatalf("unexpected room id: %s", roomID)
			}
			gotLimit, gotOffset = limit, offset
			return []*model.Attendance{{ID: "rec-1", PersonID: "p1", RoomID: roomID}}, 1, nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/rooms/r1/today?limit=20&offset=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotLimit != 20 || gotOffset != 5 {
		t.Fatalf("pagination not forwarded: limit=%d offset=%d", gotLimit, gotOffset)
	}

	var resp struct {
		Data       []model.Attendance `json:"data"`
		TotalCount int64              `json:"total_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TotalCount != 1 || len(resp.Data) != 1 {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}
