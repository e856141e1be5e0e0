package repository

import (
	"context"
	"errors"
	"fmt"
	attendanceerrors "roomtrack/internal/attendance/errors"
	"roomtrack/pkg/config"
	mongotx "roomtrack/pkg/db/mongo"
	"roomtrack/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName          = "Attendance"
	OccupancyCollectionName = "RoomOccupancy"
)

type mongoAttendanceRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	occupancy  *mongo.Collection
	txManager  mongotx.TransactionManager
}

type AttendanceRepository interface {
	FindByID(ctx context.Context, id string) (*model.Attendance, error)
	FindByIdempotencyToken(ctx context.Context, token string) (*model.Attendance, error)
	FindActiveByPerson(ctx context.Context, personID string) (*model.Attendance, error)
	CountByRoomAndDay(ctx context.Context, roomID string, day time.Time) (int64, error)
	FindByRoomAndDay(ctx context.Context, roomID string, day time.Time, limit int, offset int64) ([]*model.Attendance, error)
	InsertIfUnderCapacity(ctx context.Context, attendance *model.Attendance, capacity int) (string, error)
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoAttendanceRepository(cfg *config.Config) AttendanceRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAttendanceRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		occupancy:  db.Collection(OccupancyCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function, as we cannot wrap SessionContext without breaking
// transaction semantics.
func (r *mongoAttendanceRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

// dayWindow returns the UTC day boundaries containing t.
func dayWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

func (r *mongoAttendanceRepository) FindByID(ctx context.Context, id string) (*model.Attendance, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", attendanceerrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}

	var attendance model.Attendance
	err = r.collection.FindOne(ctx, filter).Decode(&attendance)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, attendanceerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find attendance record: %w", err)
	}

	return &attendance, nil
}

func (r *mongoAttendanceRepository) FindByIdempotencyToken(ctx context.Context, token string) (*model.Attendance, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"idempotency_token": token}

	var attendance model.Attendance
	err := r.collection.FindOne(ctx, filter).Decode(&attendance)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, attendanceerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find attendance by token: %w", err)
	}

	return &attendance, nil
}

// FindActiveByPerson returns the person's most recent presence record, or
// ErrNotFound when the person is not checked in anywhere.
func (r *mongoAttendanceRepository) FindActiveByPerson(ctx context.Context, personID string) (*model.Attendance, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"person_id": personID}
	opts := options.FindOne().SetSort(bson.D{{Key: "check_in_time", Value: -1}})

	var attendance model.Attendance
	err := r.collection.FindOne(ctx, filter, opts).Decode(&attendance)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, attendanceerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find active presence: %w", err)
	}

	return &attendance, nil
}

func (r *mongoAttendanceRepository) CountByRoomAndDay(ctx context.Context, roomID string, day time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, r.buildRoomDayFilter(roomID, day))
	if err != nil {
		return 0, fmt.Errorf("failed to count room occupancy: %w", err)
	}
	return count, nil
}

func (r *mongoAttendanceRepository) FindByRoomAndDay(ctx context.Context, roomID string, day time.Time, limit int, offset int64) ([]*model.Attendance, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "check_in_time", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, r.buildRoomDayFilter(roomID, day), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find attendance records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*model.Attendance
	if err = cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode attendance records: %w", err)
	}

	return records, nil
}

func (r *mongoAttendanceRepository) buildRoomDayFilter(roomID string, day time.Time) bson.M {
	start, end := dayWindow(day)
	return bson.M{
		"room_id": roomID,
		"check_in_time": bson.M{
			"$gte": start,
			"$lt":  end,
		},
	}
}

// reserveSlot takes one occupancy slot for the room's day, or returns
// ErrCapacityExceeded when the counter is already at capacity. Counting the
// attendance records instead would not hold under concurrency: transactions
// conflict only on documents both of them write, and two admissions inserting
// distinct records write no common document. The shared counter is that
// common document, so two transactions racing for the last slot cannot both
// commit; the loser is retried by the driver, re-reads the incremented count
// and fails the $lt filter.
func (r *mongoAttendanceRepository) reserveSlot(sessCtx mongo.SessionContext, roomID string, at time.Time, capacity int) error {
	day, _ := dayWindow(at)
	key := bson.M{"room_id": roomID, "day": day}

	_, err := r.occupancy.UpdateOne(sessCtx, key,
		bson.M{"$setOnInsert": bson.M{"room_id": roomID, "day": day, "count": int64(0)}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to ensure occupancy counter: %w", err)
	}

	result, err := r.occupancy.UpdateOne(sessCtx,
		bson.M{"room_id": roomID, "day": day, "count": bson.M{"$lt": int64(capacity)}},
		bson.M{
			"$inc": bson.M{"count": int64(1)},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to reserve occupancy slot: %w", err)
	}
	if result.ModifiedCount == 0 {
		return attendanceerrors.ErrCapacityExceeded
	}
	return nil
}

// releaseSlot hands an occupancy slot back after a record for that day is
// deleted. The $gt guard keeps counters that predate the record, or that were
// reset by hand, from going negative.
func (r *mongoAttendanceRepository) releaseSlot(sessCtx mongo.SessionContext, roomID string, at time.Time) error {
	day, _ := dayWindow(at)

	_, err := r.occupancy.UpdateOne(sessCtx,
		bson.M{"room_id": roomID, "day": day, "count": bson.M{"$gt": int64(0)}},
		bson.M{
			"$inc": bson.M{"count": int64(-1)},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to release occupancy slot: %w", err)
	}
	return nil
}

// InsertIfUnderCapacity performs the capacity-checked admission write: inside
// one transaction it re-checks the idempotency token, reserves a slot on the
// room's occupancy counter, and inserts the record. The conditional counter
// increment is the authoritative capacity guard.
func (r *mongoAttendanceRepository) InsertIfUnderCapacity(ctx context.Context, attendance *model.Attendance, capacity int) (string, error) {
	var recordID string

	err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if attendance.IdempotencyToken != "" {
			existing, err := r.FindByIdempotencyToken(sessCtx, attendance.IdempotencyToken)
			if err != nil && !errors.Is(err, attendanceerrors.ErrNotFound) {
				return err
			}
			if existing != nil {
				recordID = existing.ID
				return attendanceerrors.ErrDuplicateToken
			}
		}

		if err := r.reserveSlot(sessCtx, attendance.RoomID, attendance.CheckInTime, capacity); err != nil {
			return err
		}

		now := time.Now().UTC().Truncate(time.Millisecond)
		attendance.CreatedAt = now
		attendance.UpdatedAt = now

		result, err := r.collection.InsertOne(sessCtx, attendance)
		if err != nil {
			// The unique index on idempotency_token backstops the in-transaction
			// token check when two writers race outside a shared lock.
			if mongo.IsDuplicateKeyError(err) {
				return attendanceerrors.ErrDuplicateToken
			}
			return fmt.Errorf("failed to insert attendance record: %w", err)
		}

		if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
			recordID = oid.Hex()
			attendance.ID = recordID
		}
		return nil
	})

	if errors.Is(err, attendanceerrors.ErrDuplicateToken) && recordID != "" {
		// First writer already committed this admission; hand back its record.
		return recordID, attendanceerrors.ErrDuplicateToken
	}
	if err != nil {
		return "", err
	}

	return recordID, nil
}

// Delete removes a presence record and returns its occupancy slot in the same
// transaction, so a released slot is observable by the next admission.
func (r *mongoAttendanceRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", attendanceerrors.ErrInvalidID, id)
	}

	return r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		var attendance model.Attendance
		err := r.collection.FindOneAndDelete(sessCtx, bson.M{"_id": objectID}).Decode(&attendance)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return attendanceerrors.ErrNotFound
			}
			return fmt.Errorf("failed to delete attendance record: %w", err)
		}

		return r.releaseSlot(sessCtx, attendance.RoomID, attendance.CheckInTime)
	})
}

func (r *mongoAttendanceRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
