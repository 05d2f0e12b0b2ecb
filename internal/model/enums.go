package model

// Render job status
type RenderStatus string

const (
	RenderStatusQueued     RenderStatus = "queued"
	RenderStatusProcessing RenderStatus = "processing"
	RenderStatusCompleted  RenderStatus = "completed"
	RenderStatusFailed     RenderStatus = "failed"
	RenderStatusCancelled  RenderStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s RenderStatus) Terminal() bool {
	return s == RenderStatusCompleted || s == RenderStatusFailed || s == RenderStatusCancelled
}

// Render types
type RenderType string

const (
	RenderTypePreview       RenderType = "preview"
	RenderTypeFinal         RenderType = "final"
	RenderTypeExportVariant RenderType = "export_variant"
)

// Pipeline step names, in execution order
type StepName string

const (
	StepScript      StepName = "script"
	StepVoiceover   StepName = "voiceover"
	StepVideos      StepName = "videos"
	StepComposition StepName = "composition"
	StepUpload      StepName = "upload"
)

// PipelineSteps lists every step of a tour-video job in order.
var PipelineSteps = []StepName{StepScript, StepVoiceover, StepVideos, StepComposition, StepUpload}

// Step status
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// Video tones
type Tone string

const (
	ToneLuxury  Tone = "luxury"
	ToneCozy    Tone = "cozy"
	ToneModern  Tone = "modern"
	ToneMinimal Tone = "minimal"
	ToneBold    Tone = "bold"
)

var ValidTones = []Tone{ToneLuxury, ToneCozy, ToneModern, ToneMinimal, ToneBold}

// Pacing
type Pace string

const (
	PaceSlow     Pace = "slow"
	PaceModerate Pace = "moderate"
	PaceFast     Pace = "fast"
)

var ValidPaces = []Pace{PaceSlow, PaceModerate, PaceFast}

// Camera movements
type CameraMovement string

const (
	CameraZoomIn     CameraMovement = "zoom_in"
	CameraZoomOut    CameraMovement = "zoom_out"
	CameraPanLeft    CameraMovement = "pan_left"
	CameraPanRight   CameraMovement = "pan_right"
	CameraPanUp      CameraMovement = "pan_up"
	CameraPanDown    CameraMovement = "pan_down"
	CameraOrbitLeft  CameraMovement = "orbit_left"
	CameraOrbitRight CameraMovement = "orbit_right"
	CameraStatic     CameraMovement = "static"
)

// DefaultCameraSequence is the round-robin movement assignment for new scenes.
var DefaultCameraSequence = []CameraMovement{
	CameraZoomIn, CameraPanRight, CameraZoomOut, CameraPanLeft, CameraOrbitRight,
}

// Image-to-video models
type VideoModel string

const (
	VideoModelKling    VideoModel = "kling"
	VideoModelKlingPro VideoModel = "kling_pro"
	VideoModelKlingV2  VideoModel = "kling_v2"
	VideoModelVeo3     VideoModel = "veo3"
	VideoModelVeo3Fast VideoModel = "veo3_fast"
	VideoModelMinimax  VideoModel = "minimax"
	VideoModelRunway   VideoModel = "runway"
)

var ValidVideoModels = []VideoModel{
	VideoModelKling, VideoModelKlingPro, VideoModelKlingV2,
	VideoModelVeo3, VideoModelVeo3Fast, VideoModelMinimax, VideoModelRunway,
}

// Transitions
type TransitionType string

const (
	TransitionCrossfade TransitionType = "crossfade"
	TransitionCut       TransitionType = "cut"
)

// Voice styles
type VoiceStyle string

const (
	VoiceStyleProfessional VoiceStyle = "professional"
	VoiceStyleFriendly     VoiceStyle = "friendly"
	VoiceStyleWarm         VoiceStyle = "warm"
)

var ValidVoiceStyles = []VoiceStyle{VoiceStyleProfessional, VoiceStyleFriendly, VoiceStyleWarm}
