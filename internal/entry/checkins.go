package entry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eventide/backend/internal/models"
)

// CheckInStore records the first accepted scan per (event, user).
type CheckInStore interface {
	// Record stores a check-in and reports whether it was newly recorded.
	Record(ctx context.Context, eventID, userID string, at time.Time) (bool, error)
	List(ctx context.Context, eventID string) ([]models.CheckIn, error)
}

// Repository is the PostgreSQL check-in store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL check-in store.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts the check-in; an existing row leaves the first timestamp in place.
func (r *Repository) Record(ctx context.Context, eventID, userID string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO event_check_ins (event_id, user_id, checked_in_at) VALUES ($1, $2, $3)
		ON CONFLICT (event_id, user_id) DO NOTHING`, eventID, userID, at)
	if err != nil {
		return false, fmt.Errorf("insert check-in: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// List returns check-ins for an event, earliest first.
func (r *Repository) List(ctx context.Context, eventID string) ([]models.CheckIn, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT event_id, user_id, checked_in_at FROM event_check_ins WHERE event_id = $1 ORDER BY checked_in_at ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	defer rows.Close()
	list := []models.CheckIn{}
	for rows.Next() {
		var ci models.CheckIn
		if err := rows.Scan(&ci.EventID, &ci.UserID, &ci.CheckedInAt); err != nil {
			return nil, err
		}
		list = append(list, ci)
	}
	return list, rows.Err()
}

// CollectionCheckIns is the MongoDB collection holding check-ins.
const CollectionCheckIns = "check_ins"

type checkInDocument struct {
	EventID     string    `bson:"eventId"`
	UserID      string    `bson:"userId"`
	CheckedInAt time.Time `bson:"checkedInAt"`
}

// MongoRepository stores check-ins in MongoDB under a unique (eventId, userId) index.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a MongoDB check-in store.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionCheckIns)}
}

// EnsureIndexes creates the unique index Record relies on.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "eventId", Value: 1}, {Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create check-in index: %w", err)
	}
	return nil
}

// Record inserts the check-in; a duplicate key means the user was already checked in.
func (r *MongoRepository) Record(ctx context.Context, eventID, userID string, at time.Time) (bool, error) {
	_, err := r.coll.InsertOne(ctx, checkInDocument{EventID: eventID, UserID: userID, CheckedInAt: at})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert check-in: %w", err)
	}
	return true, nil
}

// List returns check-ins for an event, earliest first.
func (r *MongoRepository) List(ctx context.Context, eventID string) ([]models.CheckIn, error) {
	cur, err := r.coll.Find(ctx, bson.M{"eventId": eventID}, options.Find().SetSort(bson.D{{Key: "checkedInAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find check-ins: %w", err)
	}
	defer cur.Close(ctx)
	list := []models.CheckIn{}
	for cur.Next(ctx) {
		var d checkInDocument
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		list = append(list, models.CheckIn{EventID: d.EventID, UserID: d.UserID, CheckedInAt: d.CheckedInAt.UTC()})
	}
	return list, cur.Err()
}

// MemoryStore is an in-process CheckInStore.
type MemoryStore struct {
	mu   sync.Mutex
	byEv map[string]map[string]time.Time
}

// NewMemoryStore creates an empty in-memory check-in store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byEv: make(map[string]map[string]time.Time)}
}

func (m *MemoryStore) Record(_ context.Context, eventID, userID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := m.byEv[eventID]
	if users == nil {
		users = make(map[string]time.Time)
		m.byEv[eventID] = users
	}
	if _, ok := users[userID]; ok {
		return false, nil
	}
	users[userID] = at
	return true, nil
}

func (m *MemoryStore) List(_ context.Context, eventID string) ([]models.CheckIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := []models.CheckIn{}
	for u, at := range m.byEv[eventID] {
		list = append(list, models.CheckIn{EventID: eventID, UserID: u, CheckedInAt: at})
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CheckedInAt.Equal(list[j].CheckedInAt) {
			return list[i].CheckedInAt.Before(list[j].CheckedInAt)
		}
		return list[i].UserID < list[j].UserID
	})
	return list, nil
}
