package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	attendanceerrors "roomtrack/internal/attendance/errors"
	"roomtrack/internal/attendance/events"
	"roomtrack/internal/attendance/repository"
	"roomtrack/pkg/config"
	apperrors "roomtrack/pkg/errors"
	"roomtrack/pkg/idempotency"
	"roomtrack/pkg/lock"
	"roomtrack/pkg/model"
)

// PersonDirectory resolves identification tokens to person snapshots.
type PersonDirectory interface {
	Lookup(ctx context.Context, method, value string) (*model.Person, error)
	GetPerson(ctx context.Context, id string) (*model.Person, error)
}

// RoomDirectory reads room snapshots at admission time.
type RoomDirectory interface {
	GetRoom(ctx context.Context, roomID string) (*model.Room, error)
}

type AttendanceService interface {
	CheckIn(ctx context.Context, req *model.CheckInRequest) (*model.CheckInResult, error)
	CheckOut(ctx context.Context, req *model.CheckOutRequest) (*model.CheckOutResult, error)
	ListRoomToday(ctx context.Context, roomID string, limit int, offset int64) ([]*model.Attendance, int64, error)
}

type attendanceService struct {
	cfg       *config.Config
	repo      repository.AttendanceRepository
	persons   PersonDirectory
	rooms     RoomDirectory
	locker    lock.Locker
	idemStore idempotency.Store
	publisher events.Publisher
}

func NewAttendanceService(
	cfg *config.Config,
	repo repository.AttendanceRepository,
	persons PersonDirectory,
	rooms RoomDirectory,
	locker lock.Locker,
	idemStore idempotency.Store,
	publisher events.Publisher,
) AttendanceService {
	return &attendanceService{
		cfg:       cfg,
		repo:      repo,
		persons:   persons,
		rooms:     rooms,
		locker:    locker,
		idemStore: idemStore,
		publisher: publisher,
	}
}

// CheckIn admits a person to a room. The pipeline is: resolve identity,
// replay a memoized outcome if the idempotency token was seen before, then
// under a per-(person, room) lock validate eligibility, single presence and
// capacity, and commit the record in one transaction. Business rejections
// come back as a rejected result with a stable reason code, not as an error;
// only infrastructure failures surface as errors.
func (s *attendanceService) CheckIn(ctx context.Context, req *model.CheckInRequest) (*model.CheckInResult, error) {
	person, err := s.resolvePerson(ctx, req.Method, req.Value, req.PersonID)
	if err != nil {
		return nil, err
	}
	if person == nil {
		return rejectedCheckIn(attendanceerrors.ReasonPersonIneligible), nil
	}

	token := req.IdempotencyToken
	if token == "" {
		token = deriveCheckInToken(person.ID, req.RoomID, time.Now())
	}

	if result := s.replayCheckIn(ctx, token); result != nil {
		return result, nil
	}

	if !person.Eligible {
		result := rejectedCheckIn(attendanceerrors.ReasonPersonIneligible)
		s.memoizeCheckIn(ctx, token, result)
		return result, nil
	}

	room, err := s.rooms.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "room directory lookup failed", 503)
	}
	if room == nil || !room.Eligible || room.Capacity <= 0 {
		result := rejectedCheckIn(attendanceerrors.ReasonRoomUnavailable)
		s.memoizeCheckIn(ctx, token, result)
		return result, nil
	}

	var result *model.CheckInResult

	lockKey := person.ID + ":" + room.ID
	retryCfg := lock.RetryConfig{
		TTL:        s.cfg.LockTTL,
		MaxRetries: s.cfg.LockMaxRetries,
		Backoff:    s.cfg.LockRetryBackoff,
	}

	err = lock.WithLock(ctx, s.locker, lockKey, retryCfg, func(ctx context.Context) error {
		var admitErr error
		result, admitErr = s.admit(ctx, person, room, token)
		return admitErr
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			// Transient: never memoized, the client retries with the same token.
			return nil, apperrors.LockTimeout(lockKey, err)
		}
		return nil, err
	}

	s.memoizeCheckIn(ctx, token, result)

	if result.Accepted() && result.RecordID != "" {
		s.publisher.PublishCheckIn(model.CheckInEvent{
			RecordID:    result.RecordID,
			PersonID:    result.PersonID,
			RoomID:      result.RoomID,
			CheckInTime: result.CheckInTime,
		})
	}

	return result, nil
}

// admit runs the lock-protected part of the pipeline.
func (s *attendanceService) admit(ctx context.Context, person *model.Person, room *model.Room, token string) (*model.CheckInResult, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)

	active, err := s.repo.FindActiveByPerson(ctx, person.ID)
	if err != nil && !errors.Is(err, attendanceerrors.ErrNotFound) {
		return nil, apperrors.Internal("failed to check active presence", err)
	}
	if active != nil && sameDay(active.CheckInTime, now) {
		if active.RoomID == room.ID {
			// Re-entry into the same room is idempotent: same record, no new row.
			return acceptedCheckIn(active), nil
		}
		return rejectedCheckIn(attendanceerrors.ReasonAlreadyPresentElsewhere), nil
	}

	// Advisory fast path: a visibly full room is rejected without paying for
	// a transaction. The occupancy counter inside InsertIfUnderCapacity stays
	// the authoritative guard.
	if occupied, err := s.repo.CountByRoomAndDay(ctx, room.ID, now); err == nil && occupied >= int64(room.Capacity) {
		return rejectedCheckIn(attendanceerrors.ReasonCapacityExceeded), nil
	}

	attendance := &model.Attendance{
		PersonID:         person.ID,
		RoomID:           room.ID,
		CheckInTime:      now,
		IdempotencyToken: token,
	}

	recordID, err := s.repo.InsertIfUnderCapacity(ctx, attendance, room.Capacity)
	if err != nil {
		switch {
		case errors.Is(err, attendanceerrors.ErrCapacityExceeded):
			return rejectedCheckIn(attendanceerrors.ReasonCapacityExceeded), nil
		case errors.Is(err, attendanceerrors.ErrDuplicateToken):
			return s.resultFromExistingRecord(ctx, recordID, token)
		default:
			return nil, apperrors.Internal("failed to commit admission", err)
		}
	}

	attendance.ID = recordID
	return acceptedCheckIn(attendance), nil
}

// resultFromExistingRecord rebuilds the accepted result for a token whose
// first write already committed.
func (s *attendanceService) resultFromExistingRecord(ctx context.Context, recordID, token string) (*model.CheckInResult, error) {
	if recordID == "" {
		existing, err := s.repo.FindByIdempotencyToken(ctx, token)
		if err != nil {
			return nil, apperrors.Internal("failed to load existing admission", err)
		}
		return acceptedCheckIn(existing), nil
	}

	existing, err := s.repo.FindByID(ctx, recordID)
	if err != nil {
		return nil, apperrors.Internal("failed to load existing admission", err)
	}
	return acceptedCheckIn(existing), nil
}

// CheckOut releases a person's active presence. The record is deleted and the
// full presence interval is emitted as a check-out event. No lock is taken:
// delete-by-id is naturally idempotent, a lost race simply reports
// NoActivePresence.
func (s *attendanceService) CheckOut(ctx context.Context, req *model.CheckOutRequest) (*model.CheckOutResult, error) {
	person, err := s.resolvePerson(ctx, req.Method, req.Value, req.PersonID)
	if err != nil {
		return nil, err
	}
	if person == nil {
		return rejectedCheckOut(attendanceerrors.ReasonNoActivePresence), nil
	}

	active, err := s.repo.FindActiveByPerson(ctx, person.ID)
	if err != nil {
		if errors.Is(err, attendanceerrors.ErrNotFound) {
			return rejectedCheckOut(attendanceerrors.ReasonNoActivePresence), nil
		}
		return nil, apperrors.Internal("failed to check active presence", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if !sameDay(active.CheckInTime, now) {
		// Stale record from a previous day; it is not today's presence and
		// cannot be closed through the normal path.
		return rejectedCheckOut(attendanceerrors.ReasonNotEligibleForCheckout), nil
	}

	if err := s.repo.Delete(ctx, active.ID); err != nil {
		if errors.Is(err, attendanceerrors.ErrNotFound) {
			return rejectedCheckOut(attendanceerrors.ReasonNoActivePresence), nil
		}
		return nil, apperrors.Internal("failed to release presence", err)
	}

	s.publisher.PublishCheckOut(model.CheckOutEvent{
		RecordID:     active.ID,
		PersonID:     active.PersonID,
		RoomID:       active.RoomID,
		CheckInTime:  active.CheckInTime,
		CheckOutTime: now,
	})

	return &model.CheckOutResult{
		Status:       model.StatusReleased,
		RecordID:     active.ID,
		PersonID:     active.PersonID,
		RoomID:       active.RoomID,
		CheckInTime:  active.CheckInTime,
		CheckOutTime: now,
	}, nil
}

func (s *attendanceService) ListRoomToday(ctx context.Context, roomID string, limit int, offset int64) ([]*model.Attendance, int64, error) {
	now := time.Now()

	records, err := s.repo.FindByRoomAndDay(ctx, roomID, now, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("failed to list room attendance", err)
	}

	total, err := s.repo.CountByRoomAndDay(ctx, roomID, now)
	if err != nil {
		return nil, 0, apperrors.Internal("failed to count room attendance", err)
	}

	return records, total, nil
}

// resolvePerson maps the request identification onto a directory snapshot.
// (nil, nil) means the identifier resolved to nobody; directory outages
// surface as unavailable errors so the client can retry.
func (s *attendanceService) resolvePerson(ctx context.Context, method, value, personID string) (*model.Person, error) {
	if personID != "" {
		person, err := s.persons.GetPerson(ctx, personID)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "person directory lookup failed", 503)
		}
		return person, nil
	}

	if method == "" {
		method = model.IdentifyByBadge
	}

	person, err := s.persons.Lookup(ctx, method, value)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "person directory lookup failed", 503)
	}
	return person, nil
}

// replayCheckIn returns the memoized outcome for token, or nil on a miss.
// Store failures fail open: losing idempotency protection is preferable to
// refusing admissions while the store is down.
func (s *attendanceService) replayCheckIn(ctx context.Context, token string) *model.CheckInResult {
	payload, found, err := s.idemStore.Get(ctx, token)
	if err != nil {
		s.cfg.Log.Warn("Idempotency store read failed, proceeding without replay",
			"error", err,
		)
		return nil
	}
	if !found {
		return nil
	}

	var result model.CheckInResult
	if err := json.Unmarshal(payload, &result); err != nil {
		s.cfg.Log.Warn("Corrupt idempotency payload, proceeding without replay",
			"error", err,
		)
		return nil
	}

	// An accepted outcome can outlive its record: a check-out deletes the
	// record while a derived token for the same hour still maps to it. Only
	// replay acceptances whose record is still in the ledger; otherwise drop
	// the stale entry so the pipeline can admit afresh.
	if result.Accepted() && result.RecordID != "" {
		if _, err := s.repo.FindByID(ctx, result.RecordID); err != nil {
			if errors.Is(err, attendanceerrors.ErrNotFound) {
				if delErr := s.idemStore.Delete(ctx, token); delErr != nil {
					s.cfg.Log.Warn("Failed to drop stale idempotency entry",
						"error", delErr,
					)
				}
				return nil
			}
			s.cfg.Log.Warn("Could not verify memoized admission, proceeding without replay",
				"error", err,
			)
			return nil
		}
	}

	return &result
}

// memoizeCheckIn stores the outcome under token, first writer wins. Only
// business outcomes are memoized; transient failures never are.
func (s *attendanceService) memoizeCheckIn(ctx context.Context, token string, result *model.CheckInResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}

	if _, err := s.idemStore.SetNX(ctx, token, payload, s.cfg.IdempotencyTTL); err != nil {
		s.cfg.Log.Warn("Idempotency store write failed",
			"error", err,
		)
	}
}

// deriveCheckInToken buckets tokenless requests by hour so that rapid badge
// re-scans replay the same outcome without making the token collide across
// days.
func deriveCheckInToken(personID, roomID string, at time.Time) string {
	return fmt.Sprintf("checkin:%s:%s:%s", personID, roomID, at.UTC().Format("2006-01-02T15"))
}

func sameDay(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func acceptedCheckIn(attendance *model.Attendance) *model.CheckInResult {
	return &model.CheckInResult{
		Status:      model.StatusAccepted,
		RecordID:    attendance.ID,
		PersonID:    attendance.PersonID,
		RoomID:      attendance.RoomID,
		CheckInTime: attendance.CheckInTime,
	}
}

func rejectedCheckIn(reason string) *model.CheckInResult {
	return &model.CheckInResult{
		Status: model.StatusRejected,
		Reason: reason,
	}
}

func rejectedCheckOut(reason string) *model.CheckOutResult {
	return &model.CheckOutResult{
		Status: model.StatusRejected,
		Reason: reason,
	}
}
