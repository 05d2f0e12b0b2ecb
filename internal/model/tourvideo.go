package model

import "time"

// VoiceSettingsRequest is the raw, unvalidated voice configuration.
type VoiceSettingsRequest struct {
	VoiceID  string `json:"voiceId"`
	Language string `json:"language"`
	Style    string `json:"style"`
	Gender   string `json:"gender"`
}

// StyleSettingsRequest is the raw, unvalidated style configuration.
type StyleSettingsRequest struct {
	Tone       string `json:"tone"`
	Pace       string `json:"pace"`
	MusicURL   string `json:"musicUrl"`
	VideoModel string `json:"videoModel"`
}

// ListingRequest carries the property facts for a generation request.
type ListingRequest struct {
	Address      string   `json:"address" validate:"required,max=500"`
	Neighborhood string   `json:"neighborhood" validate:"max=200"`
	City         string   `json:"city" validate:"max=200"`
	Price        int64    `json:"price" validate:"gte=0"`
	Bedrooms     int      `json:"bedrooms" validate:"gte=0,lte=50"`
	Bathrooms    float64  `json:"bathrooms" validate:"gte=0,lte=50"`
	SquareFeet   int      `json:"squareFeet" validate:"gte=0"`
	PropertyType string   `json:"propertyType" validate:"max=100"`
	Status       string   `json:"status" validate:"max=100"`
	Features     []string `json:"features" validate:"max=40,dive,max=300"`
	Target       string   `json:"targetAudience" validate:"max=200"`
}

// PhotoRequest is one source photo for the tour.
type PhotoRequest struct {
	URL         string `json:"url" validate:"required,url"`
	Category    string `json:"category" validate:"max=100"`
	Description string `json:"description" validate:"max=500"`
}

// GenerateTourVideoRequest starts a tour-video pipeline for a listing.
type GenerateTourVideoRequest struct {
	ListingID       string               `json:"listingId" validate:"omitempty,uuid4"`
	DurationSeconds int                  `json:"durationSeconds" validate:"required,oneof=15 30 60"`
	Listing         ListingRequest       `json:"listing" validate:"required"`
	Photos          []PhotoRequest       `json:"photos" validate:"required,min=1,max=24,dive"`
	VoiceSettings   VoiceSettingsRequest `json:"voiceSettings"`
	StyleSettings   StyleSettingsRequest `json:"styleSettings"`
	BrandKit        *BrandKit            `json:"brandKit"`
}

// GenerateTourVideoResponse is the immediate acceptance response.
type GenerateTourVideoResponse struct {
	ProjectID   string       `json:"projectId"`
	RenderJobID string       `json:"renderJobId"`
	Status      RenderStatus `json:"status"`
	Message     string       `json:"message"`
}

// TourVideoProgressResponse reports pipeline progress for polling clients.
type TourVideoProgressResponse struct {
	ProjectID          string         `json:"projectId"`
	RenderJobID        string         `json:"renderJobId"`
	Status             RenderStatus   `json:"status"`
	ProgressPercent    int            `json:"progressPercent"`
	CurrentStep        string         `json:"currentStep,omitempty"`
	Steps              []StepProgress `json:"steps"`
	EstimatedRemaining *int           `json:"estimatedRemainingSeconds,omitempty"`
	OutputURL          string         `json:"outputUrl,omitempty"`
	ErrorMessage       string         `json:"errorMessage,omitempty"`
}

// ScenePreview is one scene in the project preview.
type ScenePreview struct {
	SceneID        string         `json:"sceneId"`
	SequenceOrder  int            `json:"sequenceOrder"`
	ImageURL       string         `json:"imageUrl"`
	NarrationText  string         `json:"narrationText,omitempty"`
	DurationMs     int            `json:"durationMs"`
	CameraMovement CameraMovement `json:"cameraMovement"`
	ClipURL        string         `json:"clipUrl,omitempty"`
}

// TourVideoPreviewResponse returns the project's scenes and generated content.
type TourVideoPreviewResponse struct {
	ProjectID       string           `json:"projectId"`
	Title           string           `json:"title"`
	DurationSeconds int              `json:"durationSeconds"`
	Scenes          []ScenePreview   `json:"scenes"`
	Script          *GeneratedScript `json:"generatedScript,omitempty"`
	Caption         string           `json:"generatedCaption,omitempty"`
	Hashtags        []string         `json:"generatedHashtags,omitempty"`
}

// CancelJobResponse confirms a cancellation request.
type CancelJobResponse struct {
	JobID  string       `json:"jobId"`
	Status RenderStatus `json:"status"`
}

// RegenerateSceneTextResponse returns a freshly rewritten scene narration.
type RegenerateSceneTextResponse struct {
	ProjectID string `json:"projectId"`
	SceneID   string `json:"sceneId"`
	Narration string `json:"narration"`
}

// RegenerateSceneResponse confirms a single-scene regeneration enqueue.
type RegenerateSceneResponse struct {
	ProjectID string `json:"projectId"`
	SceneID   string `json:"sceneId"`
	TaskID    string `json:"taskId"`
	Status    string `json:"status"`
}

// VoiceOption is one curated TTS voice.
type VoiceOption struct {
	VoiceID    string `json:"voiceId"`
	Name       string `json:"name"`
	Label      string `json:"label"`
	PreviewURL string `json:"previewUrl,omitempty"`
	Category   string `json:"category"`
}

// DeadLetterRecord captures a permanently failed task for inspection and
// manual replay.
type DeadLetterRecord struct {
	TaskID           string    `json:"taskId"`
	TaskName         string    `json:"taskName"`
	Queue            string    `json:"queue"`
	ExceptionType    string    `json:"exceptionType"`
	ExceptionMessage string    `json:"exceptionMessage"`
	Payload          []byte    `json:"payload"`
	FailedAt         time.Time `json:"failedAt"`
}
