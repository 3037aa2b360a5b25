// Package mongo implements the repositories on MongoDB.
package mongo

import (
	"time"

	"github.com/yigit/coursehub/internal/app/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	usersCollection   = "users"
	coursesCollection = "courses"
)

type userDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Name            string             `bson:"name"`
	Username        string             `bson:"username"`
	Email           string             `bson:"email"`
	Password        string             `bson:"password"`
	Phone           string             `bson:"phone"`
	Role            string             `bson:"role"`
	Grade           string             `bson:"grade,omitempty"`
	EnrolledCourses []string           `bson:"enrolledCourses"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

func (d *userDocument) toModel() *models.User {
	enrolled := d.EnrolledCourses
	if enrolled == nil {
		enrolled = []string{}
	}
	return &models.User{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Username:        d.Username,
		Email:           d.Email,
		Password:        d.Password,
		Phone:           d.Phone,
		Role:            models.RoleType(d.Role),
		Grade:           d.Grade,
		EnrolledCourses: enrolled,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type videoDocument struct {
	Title       string  `bson:"title"`
	URL         string  `bson:"url"`
	Description string  `bson:"description"`
	Thumbnail   string  `bson:"thumbnail"`
	Duration    float64 `bson:"duration"`
	Order       int     `bson:"order"`
}

type documentDocument struct {
	Title       string `bson:"title"`
	URL         string `bson:"url"`
	Description string `bson:"description"`
	Type        string `bson:"type"`
	Order       int    `bson:"order"`
}

type courseDocument struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"`
	Title               string             `bson:"title"`
	Instructor          string             `bson:"instructor"`
	OwnerID             string             `bson:"ownerId"`
	Duration            float64            `bson:"duration"`
	Price               float64            `bson:"price"`
	Description         string             `bson:"description"`
	DetailedDescription string             `bson:"detailedDescription"`
	Image               string             `bson:"image"`
	EnrolledCount       int                `bson:"enrolledCount"`
	Syllabus            string             `bson:"syllabus"`
	Videos              []videoDocument    `bson:"videos"`
	Documents           []documentDocument `bson:"documents"`
	VideoSeq            int                `bson:"videoSeq"`
	DocumentSeq         int                `bson:"documentSeq"`
	CreatedAt           time.Time          `bson:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt"`
}

func (d *courseDocument) toModel() *models.Course {
	c := &models.Course{
		ID:                  d.ID.Hex(),
		Title:               d.Title,
		Instructor:          d.Instructor,
		OwnerID:             d.OwnerID,
		Duration:            d.Duration,
		Price:               d.Price,
		Description:         d.Description,
		DetailedDescription: d.DetailedDescription,
		Image:               d.Image,
		EnrolledCount:       d.EnrolledCount,
		Syllabus:            d.Syllabus,
		Videos:              make([]models.Video, 0, len(d.Videos)),
		Documents:           make([]models.Document, 0, len(d.Documents)),
		VideoSeq:            d.VideoSeq,
		DocumentSeq:         d.DocumentSeq,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
	for _, v := range d.Videos {
		c.Videos = append(c.Videos, models.Video(v))
	}
	for _, doc := range d.Documents {
		c.Documents = append(c.Documents, models.Document(doc))
	}
	return c
}

func newCourseDocument(c *models.Course) *courseDocument {
	return &courseDocument{
		Title:               c.Title,
		Instructor:          c.Instructor,
		OwnerID:             c.OwnerID,
		Duration:            c.Duration,
		Price:               c.Price,
		Description:         c.Description,
		DetailedDescription: c.DetailedDescription,
		Image:               c.Image,
		EnrolledCount:       c.EnrolledCount,
		Syllabus:            c.Syllabus,
		Videos:              []videoDocument{},
		Documents:           []documentDocument{},
	}
}
