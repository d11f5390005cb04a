package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskini/internal/common"
	"taskini/internal/domain/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection = "users"
	tasksCollection = "tasks"
)

type mongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{coll: db.Collection(usersCollection)}
}

// EnsureMongoIndexes creates the unique email index and the task lookup indexes.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users.email index: %w", err)
	}
	_, err = db.Collection(tasksCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "assignedTo", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updatedAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create tasks indexes: %w", err)
	}
	return nil
}

func (r *mongoUserRepository) Create(ctx context.Context, user *model.User) error {
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return common.NewError(common.ErrConflict, "User with this email already exists")
		}
		return fmt.Errorf("mongoUserRepository.Create: %w", err)
	}
	return nil
}

func (r *mongoUserRepository) findOne(ctx context.Context, method string, filter bson.M) (*model.User, error) {
	user := &model.User{}
	if err := r.coll.FindOne(ctx, filter).Decode(user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("mongoUserRepository.%s: %w", method, err)
	}
	return user, nil
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "FindByEmail", bson.M{"email": email})
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "FindByID", bson.M{"_id": id})
}

func (r *mongoUserRepository) FindByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	return r.find(ctx, "FindByIDs", bson.M{"_id": bson.M{"$in": ids}}, nil)
}

func (r *mongoUserRepository) List(ctx context.Context) ([]model.User, error) {
	return r.find(ctx, "List", bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *mongoUserRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("mongoUserRepository.Count: %w", err)
	}
	return n, nil
}

func (r *mongoUserRepository) find(ctx context.Context, method string, filter bson.M, opts *options.FindOptions) ([]model.User, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongoUserRepository.%s: %w", method, err)
	}
	users := []model.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("mongoUserRepository.%s: decode: %w", method, err)
	}
	return users, nil
}

func profileSet(update model.ProfileUpdate, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	fields := map[string]*string{
		"name":       update.Name,
		"bio":        update.Bio,
		"phone":      update.Phone,
		"department": update.Department,
		"position":   update.Position,
	}
	for key, value := range fields {
		if value != nil {
			set[key] = *value
		}
	}
	return set
}

func (r *mongoUserRepository) UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	user := &model.User{}
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": profileSet(update, time.Now().UTC())}, opts).Decode(user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("mongoUserRepository.UpdateProfile: %w", err)
	}
	return user, nil
}

func (r *mongoUserRepository) UpdatePassword(ctx context.Context, id string, hashedPassword string) error {
	return r.setFields(ctx, "UpdatePassword", id, bson.M{"password": hashedPassword})
}

func (r *mongoUserRepository) UpdatePhoto(ctx context.Context, id string, photoRef string) error {
	return r.setFields(ctx, "UpdatePhoto", id, bson.M{"profilePhoto": photoRef})
}

func (r *mongoUserRepository) setFields(ctx context.Context, method, id string, set bson.M) error {
	set["updatedAt"] = time.Now().UTC()
	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("mongoUserRepository.%s: %w", method, err)
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}
