package dto

// CreateCourseRequest is the multipart form of a new course. The image comes
// either as the "image" file field or as ImageURL.
type CreateCourseRequest struct {
	Title       string  `form:"title" binding:"required,max=200" example:"Calculus I"`
	Instructor  string  `form:"instructor" binding:"omitempty,max=100" example:"Jane Doe"`
	Duration    float64 `form:"duration" binding:"required,gte=1" example:"12"`
	Price       float64 `form:"price" binding:"gte=0" example:"49.9"`
	Description string  `form:"description" binding:"required" example:"Limits, derivatives and integrals"`
	ImageURL    string  `form:"imageUrl" binding:"omitempty,url"`
}

// UpdateContentRequest updates the long-form fields. Empty values are ignored.
type UpdateContentRequest struct {
	DetailedDescription string `json:"detailedDescription"`
	Syllabus            string `json:"syllabus"`
}

// AddVideoRequest is the multipart form of a new video. The video comes either as the
// "video" file field or as VideoURL, the thumbnail as the "thumbnail" file field,
// ThumbnailURL, or else the course image.
type AddVideoRequest struct {
	Title        string  `form:"title" binding:"required,max=200" example:"Lecture 1"`
	Description  string  `form:"description"`
	Duration     float64 `form:"duration" binding:"gte=0" example:"42.5"`
	VideoURL     string  `form:"videoUrl"`
	ThumbnailURL string  `form:"thumbnailUrl"`
}

// AddDocumentRequest is the multipart form of a new document. The document comes
// either as the "document" file field or as URL.
type AddDocumentRequest struct {
	Title       string `form:"title" binding:"required,max=200" example:"Week 1 notes"`
	Description string `form:"description"`
	URL         string `form:"url"`
}

// HealthResponse reports liveness and store reachability
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	DB     string `json:"db" example:"connected"`
}
