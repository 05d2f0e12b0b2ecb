package model

import "time"

// StepProgress tracks one named pipeline step on a render job.
type StepProgress struct {
	Name    StepName               `json:"name"`
	Status  StepStatus             `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorDetails carries the structured failure cause for programmatic
// handling. Never includes prompt content or stack traces.
type ErrorDetails struct {
	Type string `json:"type"`
	Step string `json:"step,omitempty"`
}

// RenderJob represents one tour-video pipeline execution.
type RenderJob struct {
	ID              string         `json:"id"`
	ProjectID       string         `json:"projectId"`
	RenderType      RenderType     `json:"renderType"`
	Status          RenderStatus   `json:"status"`
	ProgressPercent int            `json:"progressPercent"`
	Steps           []StepProgress `json:"steps"`
	OutputURL       string         `json:"outputUrl,omitempty"`
	OutputFileSize  int64          `json:"outputFileSize,omitempty"`
	SubtitleURL     string         `json:"subtitleUrl,omitempty"`
	ErrorMessage    string         `json:"errorMessage,omitempty"`
	ErrorDetails    *ErrorDetails  `json:"errorDetails,omitempty"`
	WorkerID        string         `json:"workerId,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	StartedAt       *time.Time     `json:"startedAt,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`
}

// Step returns the progress record for a named step, or nil.
func (j *RenderJob) Step(name StepName) *StepProgress {
	for i := range j.Steps {
		if j.Steps[i].Name == name {
			return &j.Steps[i]
		}
	}
	return nil
}

// NewPipelineSteps returns the ordered step list for a fresh job, all pending.
func NewPipelineSteps() []StepProgress {
	steps := make([]StepProgress, 0, len(PipelineSteps))
	for _, name := range PipelineSteps {
		steps = append(steps, StepProgress{Name: name, Status: StepPending})
	}
	return steps
}

// Project holds the generated content for one tour video.
type Project struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	RenderJobID      string           `json:"renderJobId,omitempty"`
	ListingID        string           `json:"listingId,omitempty"`
	BrandKitID       string           `json:"brandKitId,omitempty"`
	DurationSeconds  int              `json:"durationSeconds"`
	Style            StyleSettings    `json:"style"`
	Voice            VoiceSettings    `json:"voice"`
	Scenes           []Scene          `json:"scenes"`
	GeneratedScript  *GeneratedScript `json:"generatedScript,omitempty"`
	GeneratedCaption string           `json:"generatedCaption,omitempty"`
	GeneratedTags    []string         `json:"generatedHashtags,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// Scene is one ordered unit of visual content.
type Scene struct {
	ID                 string         `json:"id"`
	SequenceOrder      int            `json:"sequenceOrder"`
	StartTimeMs        int            `json:"startTimeMs"`
	DurationMs         int            `json:"durationMs"`
	ImageURL           string         `json:"imageUrl"`
	NarrationText      string         `json:"narrationText,omitempty"`
	OnScreenText       string         `json:"onScreenText,omitempty"`
	CameraMovement     CameraMovement `json:"cameraMovement"`
	CameraIntensity    float64        `json:"cameraIntensity"`
	TransitionType     TransitionType `json:"transitionType"`
	TransitionDuration int            `json:"transitionDurationMs"`
	ClipURL            string         `json:"clipUrl,omitempty"`
}

// StyleSettings is the validated video-style configuration.
type StyleSettings struct {
	Tone       Tone       `json:"tone"`
	Pace       Pace       `json:"pace"`
	MusicURL   string     `json:"musicUrl,omitempty"`
	VideoModel VideoModel `json:"videoModel"`
}

// VoiceSettings is the validated voiceover configuration.
type VoiceSettings struct {
	Enabled  bool       `json:"enabled"`
	VoiceID  string     `json:"voiceId,omitempty"`
	Language string     `json:"language"`
	Style    VoiceStyle `json:"style"`
	Gender   string     `json:"gender"`
}

// BrandKit carries the branding applied during composition.
type BrandKit struct {
	AgentName    string `json:"agentName,omitempty"`
	Brokerage    string `json:"brokerageName,omitempty"`
	AgentPhone   string `json:"agentPhone,omitempty"`
	LogoURL      string `json:"logoUrl,omitempty"`
	PrimaryColor string `json:"primaryColor,omitempty"`
	HeadingFont  string `json:"headingFont,omitempty"`
}

// Listing holds the sanitized property facts fed to script generation.
type Listing struct {
	Address      string   `json:"address"`
	Neighborhood string   `json:"neighborhood,omitempty"`
	City         string   `json:"city,omitempty"`
	Price        int64    `json:"price,omitempty"`
	Bedrooms     int      `json:"bedrooms,omitempty"`
	Bathrooms    float64  `json:"bathrooms,omitempty"`
	SquareFeet   int      `json:"squareFeet,omitempty"`
	PropertyType string   `json:"propertyType,omitempty"`
	Status       string   `json:"status,omitempty"`
	Features     []string `json:"features,omitempty"`
	Target       string   `json:"targetAudience,omitempty"`
}

// PhotoDescriptor is one candidate source image for scenes.
type PhotoDescriptor struct {
	URL         string `json:"url"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
}

// TourJobPayload is the serialized orchestrator task payload.
type TourJobPayload struct {
	RenderJobID string            `json:"renderJobId"`
	ProjectID   string            `json:"projectId"`
	Listing     Listing           `json:"listing"`
	Photos      []PhotoDescriptor `json:"photos"`
	Scenes      []Scene           `json:"scenes"`
	Style       StyleSettings     `json:"style"`
	Voice       VoiceSettings     `json:"voice"`
	BrandKit    *BrandKit         `json:"brandKit,omitempty"`
	Duration    int               `json:"durationSeconds"`
}

// SceneJobPayload is the single-scene regeneration task payload.
type SceneJobPayload struct {
	ProjectID      string         `json:"projectId"`
	SceneID        string         `json:"sceneId"`
	ImageURL       string         `json:"imageUrl"`
	CameraMovement CameraMovement `json:"cameraMovement"`
	DurationMs     int            `json:"durationMs"`
	Style          StyleSettings  `json:"style"`
}
