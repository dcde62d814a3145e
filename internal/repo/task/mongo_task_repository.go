package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mkrupp/taskmanager/internal/domain"
	"github.com/mkrupp/taskmanager/internal/infra/logging"
)

// taskDocument is the BSON shape of a task.
type taskDocument struct {
	ID          string    `bson:"_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Completed   bool      `bson:"completed"`
	OwnerUserID string    `bson:"ownerUserId"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

func newTaskDocument(t *domain.Task) taskDocument {
	return taskDocument{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		OwnerUserID: t.OwnerUserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (d *taskDocument) task() domain.Task {
	return domain.Task{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		OwnerUserID: d.OwnerUserID,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// MongoTaskRepository implements Repository using a MongoDB collection.
type MongoTaskRepository struct {
	coll *mongo.Collection
	log  logging.Logger
}

var _ Repository = (*MongoTaskRepository)(nil)

// MongoTaskRepositoryFactory creates a factory function that returns a new MongoTaskRepository.
func MongoTaskRepositoryFactory(db *mongo.Database) RepositoryFactory {
	return func() (Repository, error) {
		return NewMongoTaskRepository(context.Background(), db)
	}
}

// NewMongoTaskRepository creates a new MongoTaskRepository on the "tasks" collection
// and ensures the owner listing index.
func NewMongoTaskRepository(ctx context.Context, db *mongo.Database) (*MongoTaskRepository, error) {
	repo := &MongoTaskRepository{
		coll: db.Collection("tasks"),
		log:  logging.GetLogger("repo.task.mongo_task_repository"),
	}

	//nolint:exhaustruct
	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "ownerUserId", Value: 1},
			{Key: "createdAt", Value: -1},
			{Key: "_id", Value: -1},
		},
		Options: options.Index().SetName("owner_created"),
	})
	if err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}

	return repo, nil
}

// CreateTask implements Repository.CreateTask using MongoDB.
func (r *MongoTaskRepository) CreateTask(ctx context.Context, task *domain.Task) error {
	if _, err := r.coll.InsertOne(ctx, newTaskDocument(task)); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	return nil
}

// GetTask implements Repository.GetTask using MongoDB.
func (r *MongoTaskRepository) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var doc taskDocument

	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = errors.Join(domain.ErrTaskNotFound, err)
		}

		return nil, fmt.Errorf("find task: %w", err)
	}

	task := doc.task()

	return &task, nil
}

// ListTasksByOwner implements Repository.ListTasksByOwner using MongoDB.
func (r *MongoTaskRepository) ListTasksByOwner(ctx context.Context, ownerUserID string) ([]domain.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.coll.Find(ctx, bson.D{{Key: "ownerUserId", Value: ownerUserID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []domain.Task{}

	for cursor.Next(ctx) {
		var doc taskDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}

		tasks = append(tasks, doc.task())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return tasks, nil
}

// UpdateTask implements Repository.UpdateTask using MongoDB.
func (r *MongoTaskRepository) UpdateTask(ctx context.Context, task *domain.Task) error {
	res, err := r.coll.UpdateByID(ctx, task.ID, bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: task.Title},
		{Key: "description", Value: task.Description},
		{Key: "completed", Value: task.Completed},
		{Key: "updatedAt", Value: task.UpdatedAt},
	}}})
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("update task: %w", domain.ErrTaskNotFound)
	}

	return nil
}

// DeleteTask implements Repository.DeleteTask using MongoDB.
func (r *MongoTaskRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("delete task: %w", domain.ErrTaskNotFound)
	}

	r.log.DebugContext(ctx, "task deleted", "id", id)

	return nil
}
