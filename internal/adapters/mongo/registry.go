package mongo

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sportshub/venue-booking/internal/domain"
	"github.com/sportshub/venue-booking/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// VenueRegistry holds venue identity, location and capacity. Read-mostly:
// the pipeline reads it for availability gating and snapshots; writes come
// from the owner surface.
type VenueRegistry struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewVenueRegistry(db *mongo.Database, logger observability.Logger) *VenueRegistry {
	return &VenueRegistry{
		coll:   db.Collection("venues"),
		logger: logger,
	}
}

type VenueDoc struct {
	ID          uuid.UUID   `bson:"_id"`
	OwnerID     uuid.UUID   `bson:"owner_id"`
	Name        string      `bson:"name"`
	Location    LocationDoc `bson:"location"`
	MaxCapacity int         `bson:"max_capacity"`
	Status      string      `bson:"status"`
}

type LocationDoc struct {
	Name    string  `bson:"name"`
	Address string  `bson:"address"`
	City    string  `bson:"city"`
	State   string  `bson:"state"`
	Country string  `bson:"country"`
	Lat     float64 `bson:"lat"`
	Lng     float64 `bson:"lng"`
}

func (r *VenueRegistry) Venue(ctx context.Context, id uuid.UUID) (*domain.Venue, error) {
	var doc VenueDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to get venue", err)
		return nil, err
	}
	venue := fromDoc(doc)
	return &venue, nil
}

func (r *VenueRegistry) CreateVenue(ctx context.Context, venue domain.Venue) error {
	_, err := r.coll.InsertOne(ctx, toDoc(venue))
	if err != nil {
		r.logger.Error("failed to create venue", err)
		return err
	}
	return nil
}

// UpdateStatus is owner-only; the caller check happens at the HTTP edge.
func (r *VenueRegistry) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.VenueStatus) error {
	result, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": string(status)}},
	)
	if err != nil {
		r.logger.Error("failed to update venue status", err)
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toDoc(v domain.Venue) VenueDoc {
	return VenueDoc{
		ID:      v.ID,
		OwnerID: v.OwnerID,
		Name:    v.Name,
		Location: LocationDoc{
			Name:    v.Location.Name,
			Address: v.Location.Address,
			City:    v.Location.City,
			State:   v.Location.State,
			Country: v.Location.Country,
			Lat:     v.Location.Lat,
			Lng:     v.Location.Lng,
		},
		MaxCapacity: v.MaxCapacity,
		Status:      string(v.Status),
	}
}

func fromDoc(doc VenueDoc) domain.Venue {
	return domain.Venue{
		ID:      doc.ID,
		OwnerID: doc.OwnerID,
		Name:    doc.Name,
		Location: domain.Location{
			Name:    doc.Location.Name,
			Address: doc.Location.Address,
			City:    doc.Location.City,
			State:   doc.Location.State,
			Country: doc.Location.Country,
			Lat:     doc.Location.Lat,
			Lng:     doc.Location.Lng,
		},
		MaxCapacity: doc.MaxCapacity,
		Status:      domain.VenueStatus(doc.Status),
	}
}
