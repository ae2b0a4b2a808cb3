package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/savemedha/outreach-api/internal/callback/entity"
)

const requestsCollection = "callbackrequests"

type requestDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	FullName     string             `bson:"fullName"`
	PhoneNumber  string             `bson:"phoneNumber"`
	Description  string             `bson:"description"`
	Status       string             `bson:"status"`
	AdminComment string             `bson:"adminComment"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (d requestDoc) toEntity() *entity.Request {
	return &entity.Request{
		ID:           d.ID.Hex(),
		FullName:     d.FullName,
		PhoneNumber:  d.PhoneNumber,
		Description:  d.Description,
		Status:       entity.Status(d.Status),
		AdminComment: d.AdminComment,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{col: db.Collection(requestsCollection)}
}

func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("status_created_at"),
	})
	return err
}

func (r *MongoRepo) Create(ctx context.Context, req *entity.Request) (*entity.Request, error) {
	now := time.Now().UTC()
	doc := requestDoc{
		ID:           primitive.NewObjectID(),
		FullName:     req.FullName,
		PhoneNumber:  req.PhoneNumber,
		Description:  req.Description,
		Status:       string(req.Status),
		AdminComment: req.AdminComment,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert callback request: %w", err)
	}
	return doc.toEntity(), nil
}

func (r *MongoRepo) FindByID(ctx context.Context, id string) (*entity.Request, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc requestDoc
	if err := r.col.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.toEntity(), nil
}

func (r *MongoRepo) List(ctx context.Context) ([]*entity.Request, error) {
	cur, err := r.col.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []requestDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*entity.Request, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toEntity())
	}
	return out, nil
}

func (r *MongoRepo) UpdateReview(ctx context.Context, id string, status entity.Status, comment string) (*entity.Request, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	set := bson.D{
		{Key: "status", Value: string(status)},
		{Key: "adminComment", Value: comment},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}
	var doc requestDoc
	err = r.col.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.toEntity(), nil
}
