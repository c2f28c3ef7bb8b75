package state

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dramakit/drama/common/models"
)

const (
	taskCollection     = "dramatask"
	workflowCollection = "dramaworkflow"
)

// Connect opens a Mongo client and pings it.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("state: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("state: ping: %w", err)
	}
	return client, nil
}

// MongoTaskStore implements TaskStore on a Mongo collection.
type MongoTaskStore struct {
	coll *mongo.Collection
}

func NewMongoTaskStore(client *mongo.Client, database string) *MongoTaskStore {
	return &MongoTaskStore{coll: client.Database(database).Collection(taskCollection)}
}

func (s *MongoTaskStore) Find(ctx context.Context, parent string) ([]models.Task, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"parent": parent})
	if err != nil {
		return nil, fmt.Errorf("state: find tasks: %w", err)
	}
	var tasks []models.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("state: decode tasks: %w", err)
	}
	return tasks, nil
}

func (s *MongoTaskStore) FindOne(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := s.coll.FindOne(ctx, bson.M{"id": id}).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: find task %s: %w", id, err)
	}
	return &task, nil
}

func (s *MongoTaskStore) FindByName(ctx context.Context, parent, name string) (*models.Task, error) {
	var task models.Task
	err := s.coll.FindOne(ctx, bson.M{"parent": parent, "name": name}).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: find task %s/%s: %w", parent, name, err)
	}
	return &task, nil
}

func (s *MongoTaskStore) CreateOrUpdateFromID(ctx context.Context, id string, fields Fields) error {
	return upsert(ctx, s.coll, id, fields)
}

// MongoWorkflowStore implements WorkflowStore on a Mongo collection.
type MongoWorkflowStore struct {
	coll *mongo.Collection
}

func NewMongoWorkflowStore(client *mongo.Client, database string) *MongoWorkflowStore {
	return &MongoWorkflowStore{coll: client.Database(database).Collection(workflowCollection)}
}

func (s *MongoWorkflowStore) FindOne(ctx context.Context, id string) (*models.Workflow, error) {
	var wf models.Workflow
	err := s.coll.FindOne(ctx, bson.M{"id": id}).Decode(&wf)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: find workflow %s: %w", id, err)
	}
	return &wf, nil
}

func (s *MongoWorkflowStore) CreateOrUpdateFromID(ctx context.Context, id string, fields Fields) error {
	return upsert(ctx, s.coll, id, fields)
}

func upsert(ctx context.Context, coll *mongo.Collection, id string, fields Fields) error {
	set := bson.M{"id": id}
	for k, v := range fields {
		set[k] = v
	}
	_, err := coll.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": set},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("state: upsert %s: %w", id, err)
	}
	return nil
}
