package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/repositories"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CourseRepository stores each course as one document with embedded videos and documents
type CourseRepository struct {
	coll   *mongo.Collection
	logger zerolog.Logger
}

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(db *mongo.Database, logger zerolog.Logger) *CourseRepository {
	return &CourseRepository{coll: db.Collection(coursesCollection), logger: logger}
}

func parseCourseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, repositories.ErrInvalidCourseID
	}
	return oid, nil
}

// Create inserts a course with empty content lists
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	doc := newCourseDocument(course)
	doc.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	doc.CreatedAt, doc.UpdatedAt = now, now

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		r.logger.Error().Err(err).Str("title", course.Title).Msg("Error inserting course")
		return fmt.Errorf("error creating course: %w", err)
	}

	course.ID = doc.ID.Hex()
	course.CreatedAt, course.UpdatedAt = now, now
	course.Videos = []models.Video{}
	course.Documents = []models.Document{}
	return nil
}

// List returns every course, newest first
func (r *CourseRepository) List(ctx context.Context) ([]*models.Course, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		r.logger.Error().Err(err).Msg("Error listing courses")
		return nil, fmt.Errorf("error querying courses: %w", err)
	}
	defer cursor.Close(ctx)

	courses := []*models.Course{}
	for cursor.Next(ctx) {
		var doc courseDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding course: %w", err)
		}
		courses = append(courses, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating courses: %w", err)
	}
	return courses, nil
}

func (r *CourseRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.Course, error) {
	var doc courseDocument
	if err := r.coll.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrCourseNotFound
		}
		r.logger.Error().Err(err).Msg("Error finding course")
		return nil, fmt.Errorf("error getting course: %w", err)
	}
	return doc.toModel(), nil
}

// GetByID retrieves a course by ID
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	oid, err := parseCourseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// GetByTitle retrieves the oldest course with an exactly matching title
func (r *CourseRepository) GetByTitle(ctx context.Context, title string) (*models.Course, error) {
	return r.findOne(ctx, bson.M{"title": title},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// Delete removes a course document
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseCourseID(id)
	if err != nil {
		return err
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		r.logger.Error().Err(err).Str("courseID", id).Msg("Error deleting course")
		return fmt.Errorf("error deleting course: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrCourseNotFound
	}
	return nil
}

func (r *CourseRepository) findOneAndUpdate(ctx context.Context, oid primitive.ObjectID, update interface{}) (*models.Course, error) {
	var doc courseDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrCourseNotFound
		}
		r.logger.Error().Err(err).Str("courseID", oid.Hex()).Msg("Error updating course")
		return nil, fmt.Errorf("error updating course: %w", err)
	}
	return doc.toModel(), nil
}

// UpdateContent sets the non-empty fields of update
func (r *CourseRepository) UpdateContent(ctx context.Context, id string, update repositories.ContentUpdate) (*models.Course, error) {
	oid, err := parseCourseID(id)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.DetailedDescription != "" {
		set["detailedDescription"] = update.DetailedDescription
	}
	if update.Syllabus != "" {
		set["syllabus"] = update.Syllabus
	}
	return r.findOneAndUpdate(ctx, oid, bson.M{"$set": set})
}

// appendPipeline bumps seqField and appends item with order set to the new counter value,
// all inside one document update. User values are wrapped in $literal so strings
// starting with $ are never read as field paths.
func appendPipeline(seqField, listField string, item bson.D) mongo.Pipeline {
	literal := make(bson.D, 0, len(item)+1)
	for _, e := range item {
		literal = append(literal, bson.E{Key: e.Key, Value: bson.D{{Key: "$literal", Value: e.Value}}})
	}
	literal = append(literal, bson.E{Key: "order", Value: "$" + seqField})

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: seqField, Value: bson.D{{Key: "$add", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$" + seqField, 0}}}, 1,
			}}}},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: listField, Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$" + listField, bson.A{}}}},
				bson.A{literal},
			}}}},
		}}},
	}
}

// AppendVideo adds a video with the next order value in one atomic update
func (r *CourseRepository) AppendVideo(ctx context.Context, courseID string, video models.Video) (*models.Course, error) {
	oid, err := parseCourseID(courseID)
	if err != nil {
		return nil, err
	}
	return r.findOneAndUpdate(ctx, oid, appendPipeline("videoSeq", "videos", bson.D{
		{Key: "title", Value: video.Title},
		{Key: "url", Value: video.URL},
		{Key: "description", Value: video.Description},
		{Key: "thumbnail", Value: video.Thumbnail},
		{Key: "duration", Value: video.Duration},
	}))
}

// AppendDocument adds a document with the next order value in one atomic update
func (r *CourseRepository) AppendDocument(ctx context.Context, courseID string, document models.Document) (*models.Course, error) {
	oid, err := parseCourseID(courseID)
	if err != nil {
		return nil, err
	}
	return r.findOneAndUpdate(ctx, oid, appendPipeline("documentSeq", "documents", bson.D{
		{Key: "title", Value: document.Title},
		{Key: "url", Value: document.URL},
		{Key: "description", Value: document.Description},
		{Key: "type", Value: document.Type},
	}))
}

// pullByOrder removes the item whose order matches. A zero match count means a
// concurrent request removed it first.
func (r *CourseRepository) pullByOrder(ctx context.Context, oid primitive.ObjectID, listField string, order int) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, listField + ".order": order},
		bson.M{
			"$pull": bson.M{listField: bson.M{"order": order}},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		})
	if err != nil {
		r.logger.Error().Err(err).Str("courseID", oid.Hex()).Str("list", listField).Msg("Error removing item")
		return false, fmt.Errorf("error removing %s item: %w", listField, err)
	}
	return res.ModifiedCount > 0, nil
}

// RemoveVideo deletes the video at position index of the order-sorted list
func (r *CourseRepository) RemoveVideo(ctx context.Context, courseID string, index int) (*models.Video, error) {
	course, err := r.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(course.Videos) {
		return nil, apperrors.ErrVideoNotFound
	}
	removed := course.Videos[index]

	oid, _ := parseCourseID(courseID)
	ok, err := r.pullByOrder(ctx, oid, "videos", removed.Order)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrVideoNotFound
	}
	return &removed, nil
}

// RemoveDocument deletes the document at position index of the order-sorted list
func (r *CourseRepository) RemoveDocument(ctx context.Context, courseID string, index int) (*models.Document, error) {
	course, err := r.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(course.Documents) {
		return nil, apperrors.ErrDocumentNotFound
	}
	removed := course.Documents[index]

	oid, _ := parseCourseID(courseID)
	ok, err := r.pullByOrder(ctx, oid, "documents", removed.Order)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrDocumentNotFound
	}
	return &removed, nil
}

// Stats aggregates price, duration and enrollment over all courses
func (r *CourseRepository) Stats(ctx context.Context) (*models.CourseStats, error) {
	cursor, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalCourses", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "averagePrice", Value: bson.D{{Key: "$avg", Value: "$price"}}},
			{Key: "averageDuration", Value: bson.D{{Key: "$avg", Value: "$duration"}}},
			{Key: "totalEnrolled", Value: bson.D{{Key: "$sum", Value: "$enrolledCount"}}},
		}}},
	})
	if err != nil {
		r.logger.Error().Err(err).Msg("Error aggregating course stats")
		return nil, fmt.Errorf("error getting course stats: %w", err)
	}
	defer cursor.Close(ctx)

	var result struct {
		TotalCourses    int64   `bson:"totalCourses"`
		AveragePrice    float64 `bson:"averagePrice"`
		AverageDuration float64 `bson:"averageDuration"`
		TotalEnrolled   int64   `bson:"totalEnrolled"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&result); err != nil {
			return nil, fmt.Errorf("error decoding course stats: %w", err)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error reading course stats: %w", err)
	}

	return &models.CourseStats{
		TotalCourses:    result.TotalCourses,
		AveragePrice:    result.AveragePrice,
		AverageDuration: result.AverageDuration,
		TotalEnrolled:   result.TotalEnrolled,
	}, nil
}
