package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mkrupp/taskmanager/internal/domain"
	"github.com/mkrupp/taskmanager/internal/infra/logging"
)

// userDocument is the BSON shape of a user.
type userDocument struct {
	ID           string     `bson:"_id"`
	Username     string     `bson:"username"`
	Email        string     `bson:"email"`
	PasswordHash []byte     `bson:"passwordHash"`
	CreatedAt    time.Time  `bson:"createdAt"`
	LastLogin    *time.Time `bson:"lastLogin,omitempty"`
}

func (d *userDocument) user() *domain.User {
	user := &domain.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
	}

	if d.LastLogin != nil {
		t := d.LastLogin.UTC()
		user.LastLogin = &t
	}

	return user
}

// MongoUserRepository implements Repository using a MongoDB collection.
type MongoUserRepository struct {
	coll *mongo.Collection
	log  logging.Logger
}

var _ Repository = (*MongoUserRepository)(nil)

// MongoUserRepositoryFactory creates a factory function that returns a new MongoUserRepository.
func MongoUserRepositoryFactory(db *mongo.Database) RepositoryFactory {
	return func() (Repository, error) {
		return NewMongoUserRepository(context.Background(), db)
	}
}

// NewMongoUserRepository creates a new MongoUserRepository on the "users" collection
// and ensures its unique indexes.
func NewMongoUserRepository(ctx context.Context, db *mongo.Database) (*MongoUserRepository, error) {
	repo := &MongoUserRepository{
		coll: db.Collection("users"),
		log:  logging.GetLogger("repo.user.mongo_user_repository"),
	}

	//nolint:exhaustruct
	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_unique")},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
	})
	if err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}

	return repo, nil
}

// CreateUser implements Repository.CreateUser using MongoDB.
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	doc := userDocument{
		ID:           user.ID,
		Username:     user.Username,
		Email:        strings.ToLower(user.Email),
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		LastLogin:    user.LastLogin,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			err = conflictError(duplicateIndex(err), err)
		}

		return fmt.Errorf("insert user: %w", err)
	}

	r.log.DebugContext(ctx, "user inserted", "id", user.ID)

	return nil
}

// duplicateIndex returns the index named in an E11000 error message.
func duplicateIndex(err error) string {
	_, rest, ok := strings.Cut(err.Error(), "index: ")
	if !ok {
		return ""
	}

	name, _, _ := strings.Cut(rest, " ")

	return name
}

// GetUserByID implements Repository.GetUserByID using MongoDB.
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getUser(ctx, bson.D{{Key: "_id", Value: id}})
}

// GetUserByUsername implements Repository.GetUserByUsername using MongoDB.
func (r *MongoUserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getUser(ctx, bson.D{{Key: "username", Value: username}})
}

// GetUserByEmail implements Repository.GetUserByEmail using MongoDB.
func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, bson.D{{Key: "email", Value: strings.ToLower(email)}})
}

func (r *MongoUserRepository) getUser(ctx context.Context, filter bson.D) (*domain.User, error) {
	var doc userDocument

	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = errors.Join(domain.ErrUserNotFound, err)
		}

		return nil, fmt.Errorf("find user: %w", err)
	}

	return doc.user(), nil
}

// UpdateLastLogin implements Repository.UpdateLastLogin using MongoDB.
func (r *MongoUserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.set(ctx, id, "lastLogin", at)
}

// UpdatePasswordHash implements Repository.UpdatePasswordHash using MongoDB.
func (r *MongoUserRepository) UpdatePasswordHash(ctx context.Context, id string, passwordHash []byte) error {
	return r.set(ctx, id, "passwordHash", passwordHash)
}

func (r *MongoUserRepository) set(ctx context.Context, id, field string, value any) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{{Key: field, Value: value}}}})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("update user: %w", domain.ErrUserNotFound)
	}

	return nil
}
