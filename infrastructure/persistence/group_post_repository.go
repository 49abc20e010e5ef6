package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autopost/domain/model"
	"autopost/domain/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type GroupPostRepository struct {
	collection *mongo.Collection
}

func NewGroupPostRepository(db *mongo.Database) repository.IGroupPost {
	return &GroupPostRepository{collection: db.Collection(collectionGroupPosts)}
}

// statusFilter matches the job only while it is in one of the given states.
func statusFilter(id string, statuses ...model.JobStatus) bson.M {
	if len(statuses) == 1 {
		return bson.M{"_id": id, "status": statuses[0]}
	}
	return bson.M{"_id": id, "status": bson.M{"$in": statuses}}
}

func progressSet(progress model.Progress, now time.Time) bson.M {
	results := progress.Results
	if results == nil {
		results = []model.TargetResult{}
	}
	return bson.M{
		"results":      results,
		"successCount": progress.SuccessCount,
		"failureCount": progress.FailureCount,
		"updatedAt":    now,
	}
}

func processingUpdate(startedAt time.Time) bson.M {
	return bson.M{"$set": bson.M{
		"status":    model.JobStatusProcessing,
		"startedAt": startedAt,
		"updatedAt": startedAt,
	}}
}

func canceledUpdate(now time.Time) bson.M {
	return bson.M{"$set": bson.M{
		"status":      model.JobStatusCanceled,
		"completedAt": now,
		"updatedAt":   now,
	}}
}

// finishUpdate writes the final progress together with the terminal status.
func finishUpdate(status model.JobStatus, progress model.Progress, completedAt time.Time) bson.M {
	set := progressSet(progress, completedAt)
	set["status"] = status
	set["completedAt"] = completedAt
	return bson.M{"$set": set}
}

func (r *GroupPostRepository) Create(ctx context.Context, job *model.GroupPostJob) error {
	if job.ID == "" {
		job.ID = bson.NewObjectID().Hex()
	}
	if job.Results == nil {
		job.Results = []model.TargetResult{}
	}
	if _, err := r.collection.InsertOne(ctx, job); err != nil {
		return fmt.Errorf("insert group post job: %w", err)
	}
	return nil
}

func (r *GroupPostRepository) GetByID(ctx context.Context, id string) (*model.GroupPostJob, error) {
	var job model.GroupPostJob
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&job); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (r *GroupPostRepository) ListByOwner(ctx context.Context, owner string) ([]*model.GroupPostJob, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"owner": owner}, newestFirst())
	if err != nil {
		return nil, err
	}
	jobs := make([]*model.GroupPostJob, 0)
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *GroupPostRepository) MarkProcessing(ctx context.Context, id string, startedAt time.Time) (*model.GroupPostJob, error) {
	return r.transition(ctx, statusFilter(id, model.JobStatusPending), processingUpdate(startedAt))
}

func (r *GroupPostRepository) IsProcessing(ctx context.Context, id string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, statusFilter(id, model.JobStatusProcessing))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GroupPostRepository) SaveProgress(ctx context.Context, id string, progress model.Progress) error {
	return r.update(ctx, statusFilter(id, model.JobStatusProcessing), bson.M{"$set": progressSet(progress, time.Now())})
}

func (r *GroupPostRepository) Complete(ctx context.Context, id string, progress model.Progress, completedAt time.Time) error {
	return r.update(ctx, statusFilter(id, model.JobStatusProcessing), finishUpdate(model.JobStatusCompleted, progress, completedAt))
}

func (r *GroupPostRepository) Fail(ctx context.Context, id string, progress model.Progress, completedAt time.Time) (*model.GroupPostJob, error) {
	return r.transition(ctx, statusFilter(id, model.JobStatusPending, model.JobStatusProcessing), finishUpdate(model.JobStatusFailed, progress, completedAt))
}

func (r *GroupPostRepository) MarkCanceled(ctx context.Context, id string) (*model.GroupPostJob, error) {
	return r.transition(ctx, statusFilter(id, model.JobStatusPending, model.JobStatusProcessing), canceledUpdate(time.Now()))
}

func (r *GroupPostRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return model.ErrJobNotFound
	}
	return nil
}

func (r *GroupPostRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{
		"status":      bson.M{"$in": []model.JobStatus{model.JobStatusCompleted, model.JobStatusFailed}},
		"completedAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *GroupPostRepository) update(ctx context.Context, filter, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return model.ErrJobNotActive
	}
	return nil
}

func (r *GroupPostRepository) transition(ctx context.Context, filter, update bson.M) (*model.GroupPostJob, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var job model.GroupPostJob
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&job); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrJobNotActive
		}
		return nil, err
	}
	return &job, nil
}
