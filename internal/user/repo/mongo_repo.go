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

	"github.com/savemedha/outreach-api/internal/session"
	"github.com/savemedha/outreach-api/internal/user/entity"
)

const usersCollection = "users"

type accountDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	TokenVersion int64              `bson:"tokenVersion"`
	FirstName    string             `bson:"firstName"`
	LastName     string             `bson:"lastName"`
	PhoneNumber  string             `bson:"phoneNumber"`
	Address      string             `bson:"address,omitempty"`
	Designation  string             `bson:"designation,omitempty"`
	Role         string             `bson:"role"`
	ImageURL     string             `bson:"userImage,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func toDoc(a *entity.Account) accountDoc {
	return accountDoc{
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		TokenVersion: a.TokenVersion,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		PhoneNumber:  a.PhoneNumber,
		Address:      a.Address,
		Designation:  a.Designation,
		Role:         string(a.Role),
		ImageURL:     a.ImageURL,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (d accountDoc) toEntity() *entity.Account {
	return &entity.Account{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		TokenVersion: d.TokenVersion,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		PhoneNumber:  d.PhoneNumber,
		Address:      d.Address,
		Designation:  d.Designation,
		Role:         entity.Role(d.Role),
		ImageURL:     d.ImageURL,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// MongoRepo stores accounts in the users collection.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{col: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique email index. Emails are stored lower-cased,
// so a plain unique index is case-insensitive in practice.
func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("created_at_desc")},
	})
	return err
}

func (r *MongoRepo) Create(ctx context.Context, a *entity.Account) (*entity.Account, error) {
	doc := toDoc(a)
	doc.ID = primitive.NewObjectID()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.UpdatedAt = doc.CreatedAt
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, session.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return doc.toEntity(), nil
}

func (r *MongoRepo) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

// FindByID treats a malformed id like a missing one.
func (r *MongoRepo) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, session.ErrAccountNotFound
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (r *MongoRepo) findOne(ctx context.Context, filter bson.D) (*entity.Account, error) {
	var doc accountDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, session.ErrAccountNotFound
		}
		return nil, err
	}
	return doc.toEntity(), nil
}

// List returns all accounts, newest first.
func (r *MongoRepo) List(ctx context.Context) ([]*entity.Account, error) {
	cur, err := r.col.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*entity.Account{}
	for cur.Next(ctx) {
		var doc accountDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toEntity())
	}
	return out, cur.Err()
}

// IncrementTokenVersion applies $inc in a single FindOneAndUpdate and returns the new value.
func (r *MongoRepo) IncrementTokenVersion(ctx context.Context, id string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, session.ErrAccountNotFound
	}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "tokenVersion", Value: int64(1)}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.D{{Key: "tokenVersion", Value: 1}})
	var out struct {
		TokenVersion int64 `bson:"tokenVersion"`
	}
	if err := r.col.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update, opts).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, session.ErrAccountNotFound
		}
		return 0, err
	}
	return out.TokenVersion, nil
}

// Save writes profile fields and the password hash; tokenVersion and email are left alone.
func (r *MongoRepo) Save(ctx context.Context, a *entity.Account) error {
	oid, err := primitive.ObjectIDFromHex(a.ID)
	if err != nil {
		return session.ErrAccountNotFound
	}
	res, err := r.col.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, bson.D{{Key: "$set", Value: saveFields(a)}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return session.ErrAccountNotFound
	}
	return nil
}

func saveFields(a *entity.Account) bson.D {
	return bson.D{
		{Key: "password", Value: a.PasswordHash},
		{Key: "firstName", Value: a.FirstName},
		{Key: "lastName", Value: a.LastName},
		{Key: "phoneNumber", Value: a.PhoneNumber},
		{Key: "address", Value: a.Address},
		{Key: "designation", Value: a.Designation},
		{Key: "role", Value: string(a.Role)},
		{Key: "userImage", Value: a.ImageURL},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}
}
