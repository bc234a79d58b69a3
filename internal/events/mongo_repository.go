package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eventide/backend/internal/models"
)

// CollectionEvents is the MongoDB collection holding event documents.
const CollectionEvents = "events"

type eventDocument struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	Title                string             `bson:"title"`
	Description          string             `bson:"description"`
	Location             string             `bson:"location"`
	Date                 time.Time          `bson:"date"`
	Time                 string             `bson:"time"`
	RegistrationDeadline time.Time          `bson:"registrationDeadline"`
	OrganizerID          string             `bson:"organizerID"`
	Participants         []string           `bson:"participants"`
	TicketPrice          float64            `bson:"ticketPrice"`
	Poster               string             `bson:"poster,omitempty"`
	CreatedAt            time.Time          `bson:"createdAt"`
}

func (d *eventDocument) toModel() *models.Event {
	participants := d.Participants
	if participants == nil {
		participants = []string{}
	}
	return &models.Event{
		ID:                   d.ID.Hex(),
		Title:                d.Title,
		Description:          d.Description,
		Location:             d.Location,
		Date:                 d.Date.UTC(),
		Time:                 d.Time,
		RegistrationDeadline: d.RegistrationDeadline.UTC(),
		OrganizerID:          d.OrganizerID,
		Participants:         participants,
		TicketPrice:          d.TicketPrice,
		PosterPath:           d.Poster,
		CreatedAt:            d.CreatedAt.UTC(),
	}
}

// MongoRepository is the document-database event store. Participants are an
// array mutated only through $addToSet and $pull, so each update is atomic on the document.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a MongoDB event store over db.events.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionEvents)}
}

// EnsureIndexes creates the date index used by List.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "date", Value: 1}}})
	if err != nil {
		return fmt.Errorf("create date index: %w", err)
	}
	return nil
}

// ValidID reports whether id is a hex ObjectID.
func (r *MongoRepository) ValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

// Create inserts an event document and fills ID.
func (r *MongoRepository) Create(ctx context.Context, ev *models.Event) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	doc := eventDocument{
		Title:                ev.Title,
		Description:          ev.Description,
		Location:             ev.Location,
		Date:                 ev.Date,
		Time:                 ev.Time,
		RegistrationDeadline: ev.RegistrationDeadline,
		OrganizerID:          ev.OrganizerID,
		Participants:         []string{},
		TicketPrice:          ev.TicketPrice,
		Poster:               ev.PosterPath,
		CreatedAt:            ev.CreatedAt,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("insert event: unexpected id type %T", res.InsertedID)
	}
	ev.ID = oid.Hex()
	ev.Participants = []string{}
	return nil
}

// GetByID returns an event by hex id.
func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidInput
	}
	var doc eventDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mapMongoErr("find event", err)
	}
	return doc.toModel(), nil
}

// List returns events ordered by date ascending.
func (r *MongoRepository) List(ctx context.Context) ([]models.Event, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer cur.Close(ctx)

	list := []models.Event{}
	for cur.Next(ctx) {
		var doc eventDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		list = append(list, *doc.toModel())
	}
	return list, cur.Err()
}

// Delete removes an event document.
func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrInvalidInput
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// AddParticipant applies $addToSet and returns the updated document.
func (r *MongoRepository) AddParticipant(ctx context.Context, eventID, userID string) (*models.Event, error) {
	return r.updateParticipants(ctx, eventID, bson.M{"$addToSet": bson.M{"participants": userID}})
}

// RemoveParticipant applies $pull and returns the updated document.
func (r *MongoRepository) RemoveParticipant(ctx context.Context, eventID, userID string) (*models.Event, error) {
	return r.updateParticipants(ctx, eventID, bson.M{"$pull": bson.M{"participants": userID}})
}

func (r *MongoRepository) updateParticipants(ctx context.Context, eventID string, update bson.M) (*models.Event, error) {
	oid, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		return nil, models.ErrInvalidInput
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc eventDocument
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return nil, mapMongoErr("update participants", err)
	}
	return doc.toModel(), nil
}

func mapMongoErr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
