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

	"github.com/savemedha/outreach-api/internal/contact/entity"
)

const contactsCollection = "contactus"

type contactDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	FullName  string             `bson:"fullname"`
	Phone     string             `bson:"phone"`
	Email     string             `bson:"email"`
	Comments  string             `bson:"comments"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d contactDoc) toEntity() *entity.Contact {
	return &entity.Contact{
		ID:        d.ID.Hex(),
		FullName:  d.FullName,
		Phone:     d.Phone,
		Email:     d.Email,
		Comments:  d.Comments,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{col: db.Collection(contactsCollection)}
}

func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("created_at_desc"),
	})
	return err
}

func (r *MongoRepo) Create(ctx context.Context, c *entity.Contact) (*entity.Contact, error) {
	now := time.Now().UTC()
	doc := contactDoc{
		ID:        primitive.NewObjectID(),
		FullName:  c.FullName,
		Phone:     c.Phone,
		Email:     c.Email,
		Comments:  c.Comments,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	return doc.toEntity(), nil
}

func (r *MongoRepo) FindByID(ctx context.Context, id string) (*entity.Contact, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc contactDoc
	if err := r.col.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.toEntity(), nil
}

func (r *MongoRepo) List(ctx context.Context) ([]*entity.Contact, error) {
	cur, err := r.col.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []contactDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*entity.Contact, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toEntity())
	}
	return out, nil
}

func (r *MongoRepo) Save(ctx context.Context, c *entity.Contact) error {
	oid, err := primitive.ObjectIDFromHex(c.ID)
	if err != nil {
		return ErrNotFound
	}
	set := bson.D{
		{Key: "fullname", Value: c.FullName},
		{Key: "phone", Value: c.Phone},
		{Key: "email", Value: c.Email},
		{Key: "comments", Value: c.Comments},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}
	res, err := r.col.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.col.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
