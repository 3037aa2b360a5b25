package models

import "time"

// Course is the aggregate root owning ordered videos and documents
type Course struct {
	ID                  string     `json:"id" db:"id"`
	Title               string     `json:"title" db:"title" example:"Calculus I"`
	Instructor          string     `json:"instructor" db:"instructor" example:"Jane Doe"`
	OwnerID             string     `json:"ownerId" db:"owner_id"`
	Duration            float64    `json:"duration" db:"duration" example:"12"`
	Price               float64    `json:"price" db:"price" example:"49.9"`
	Description         string     `json:"description" db:"description"`
	DetailedDescription string     `json:"detailedDescription" db:"detailed_description"`
	Image               string     `json:"image" db:"image" example:"/uploads/images/9f86d081884c7d65.png"`
	EnrolledCount       int        `json:"enrolledCount" db:"enrolled_count"`
	Syllabus            string     `json:"syllabus" db:"syllabus"`
	Videos              []Video    `json:"videos" db:"-"`
	Documents           []Document `json:"documents" db:"-"`
	VideoSeq            int        `json:"-" db:"video_seq"`
	DocumentSeq         int        `json:"-" db:"document_seq"`
	CreatedAt           time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time  `json:"updatedAt" db:"updated_at"`
}

// Video is a course lecture. Order is an insertion sequence and may have gaps.
type Video struct {
	Title       string  `json:"title" db:"title"`
	URL         string  `json:"url" db:"url" example:"/uploads/videos/3b5d5c3712955042.mp4"`
	Description string  `json:"description" db:"description"`
	Thumbnail   string  `json:"thumbnail" db:"thumbnail"`
	Duration    float64 `json:"duration" db:"duration"`
	Order       int     `json:"order" db:"seq"`
}

// Document is a course attachment. Order is an insertion sequence and may have gaps.
type Document struct {
	Title       string `json:"title" db:"title"`
	URL         string `json:"url" db:"url" example:"/uploads/documents/6b86b273ff34fce1.pdf"`
	Description string `json:"description" db:"description"`
	Type        string `json:"type" db:"type" example:"pdf"`
	Order       int    `json:"order" db:"seq"`
}

// CourseStats aggregates the catalog
type CourseStats struct {
	TotalCourses    int64   `json:"totalCourses"`
	AveragePrice    float64 `json:"averagePrice"`
	AverageDuration float64 `json:"averageDuration"`
	TotalEnrolled   int64   `json:"totalEnrolled"`
}

// OwnedBy reports whether userID is the course owner
func (c *Course) OwnedBy(userID string) bool {
	return c.OwnerID != "" && c.OwnerID == userID
}
