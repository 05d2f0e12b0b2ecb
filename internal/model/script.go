package model

import "strings"

// ScriptScene is one generated scene of a script.
type ScriptScene struct {
	SceneNumber         int    `json:"scene_number"`
	DurationSeconds     int    `json:"duration_seconds"`
	Narration           string `json:"narration"`
	OnScreenText        string `json:"on_screen_text"`
	SuggestedPhotoIndex int    `json:"suggested_photo_index"`
	Emotion             string `json:"emotion"`
}

// GeneratedScript is the complete script emitted by the LLM.
type GeneratedScript struct {
	Hook               string        `json:"hook"`
	Scenes             []ScriptScene `json:"scenes"`
	CTA                string        `json:"cta"`
	Caption            string        `json:"caption,omitempty"`
	Hashtags           []string      `json:"hashtags,omitempty"`
	EstimatedWordCount int           `json:"estimated_word_count"`
}

// FullNarration joins hook, scene narrations and CTA into the single text
// submitted to TTS. One synthesis call preserves prosody continuity across
// scene boundaries.
func (s *GeneratedScript) FullNarration() string {
	parts := make([]string, 0, len(s.Scenes)+2)
	if s.Hook != "" {
		parts = append(parts, s.Hook)
	}
	for _, scene := range s.Scenes {
		if scene.Narration != "" {
			parts = append(parts, scene.Narration)
		}
	}
	if s.CTA != "" {
		parts = append(parts, s.CTA)
	}
	return strings.Join(parts, " ")
}

// VoiceoverResult is the ephemeral TTS output.
type VoiceoverResult struct {
	AudioData       []byte  `json:"-"`
	DurationSeconds float64 `json:"durationSeconds"`
	CharactersUsed  int     `json:"charactersUsed"`
}

// SceneClipResult is the ephemeral image-to-video output for one scene.
type SceneClipResult struct {
	VideoURL        string  `json:"videoUrl"`
	DurationSeconds float64 `json:"durationSeconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	Seed            int64   `json:"seed,omitempty"`
}
