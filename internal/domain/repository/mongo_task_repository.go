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

type mongoTaskRepository struct {
	coll *mongo.Collection
}

func NewMongoTaskRepository(db *mongo.Database) TaskRepository {
	return &mongoTaskRepository{coll: db.Collection(tasksCollection)}
}

func (r *mongoTaskRepository) Create(ctx context.Context, task *model.Task) error {
	if _, err := r.coll.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("mongoTaskRepository.Create: %w", err)
	}
	return nil
}

func (r *mongoTaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	task := &model.Task{}
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(task); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("mongoTaskRepository.FindByID: %w", err)
	}
	return task, nil
}

// listFilter renders filter into a query document and find options.
func listFilter(filter model.TaskFilter) (bson.M, *options.FindOptions) {
	query := bson.M{}
	if filter.ParticipantID != "" {
		query["$or"] = bson.A{
			bson.M{"user": filter.ParticipantID},
			bson.M{"assignedTo": filter.ParticipantID},
		}
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	sortKey := "createdAt"
	if filter.OrderBy == model.NewestUpdatedFirst {
		sortKey = "updatedAt"
	}
	opts := options.Find().SetSort(bson.D{{Key: sortKey, Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return query, opts
}

func (r *mongoTaskRepository) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	query, opts := listFilter(filter)
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("mongoTaskRepository.List: %w", err)
	}
	tasks := []model.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("mongoTaskRepository.List: decode: %w", err)
	}
	return tasks, nil
}

// taskSet builds the $set document for patch. Cleared optional fields are
// stored as null, matching how unset fields are written on create.
func taskSet(patch model.TaskPatch, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Priority != nil {
		set["priority"] = *patch.Priority
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.DueDate.Set {
		set["dueDate"] = patch.DueDate.Value
	}
	if patch.AssigneeID.Set {
		set["assignedTo"] = patch.AssigneeID.Value
	}
	return set
}

func (r *mongoTaskRepository) Update(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	task := &model.Task{}
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": taskSet(patch, time.Now().UTC())}, opts).Decode(task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("mongoTaskRepository.Update: %w", err)
	}
	return task, nil
}

func (r *mongoTaskRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongoTaskRepository.Delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

// statusCountPipeline groups every task by status.
func statusCountPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
}

func (r *mongoTaskRepository) CountByStatus(ctx context.Context) (map[model.TaskStatus]int64, error) {
	cursor, err := r.coll.Aggregate(ctx, statusCountPipeline())
	if err != nil {
		return nil, fmt.Errorf("mongoTaskRepository.CountByStatus: %w", err)
	}
	var rows []struct {
		Status model.TaskStatus `bson:"_id"`
		Count  int64            `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("mongoTaskRepository.CountByStatus: decode: %w", err)
	}
	counts := make(map[model.TaskStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
