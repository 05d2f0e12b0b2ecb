package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/keylia/api/internal/breaker"
	"github.com/keylia/api/internal/client"
	"github.com/keylia/api/internal/model"
)

// wordsPerSecond is the assumed social-media narration pace used to estimate
// voiceover duration without decoding the audio.
const wordsPerSecond = 2.5

// VoiceoverGenerator turns a full script into one narration track.
type VoiceoverGenerator struct {
	tts     client.SpeechSynthesizer
	breaker *breaker.Breaker
}

// NewVoiceoverGenerator creates a voiceover generator guarded by the breaker
// registered for the TTS provider.
func NewVoiceoverGenerator(tts client.SpeechSynthesizer, breakers *breaker.Registry) *VoiceoverGenerator {
	return &VoiceoverGenerator{
		tts:     tts,
		breaker: breakers.Get("elevenlabs"),
	}
}

// EstimateDuration returns the expected spoken length of text in seconds.
func EstimateDuration(text string) float64 {
	return float64(len(strings.Fields(text))) / wordsPerSecond
}

// Generate synthesizes the script's full narration in a single TTS call so
// prosody stays continuous across scene boundaries.
func (g *VoiceoverGenerator) Generate(ctx context.Context, script *model.GeneratedScript, voice model.VoiceSettings) (*model.VoiceoverResult, error) {
	narration := script.FullNarration()
	if narration == "" {
		return nil, fmt.Errorf("script has no narration text")
	}

	voiceID := voice.VoiceID
	if voiceID == "" {
		voiceID = client.DefaultVoiceID(voice.Gender)
	}

	var audio []byte
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		audio, callErr = g.tts.Synthesize(ctx, &client.SynthesizeRequest{
			Text:    narration,
			VoiceID: voiceID,
			Style:   voice.Style,
		})
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("voiceover generation failed: %w", err)
	}

	return &model.VoiceoverResult{
		AudioData:       audio,
		DurationSeconds: EstimateDuration(narration),
		CharactersUsed:  len(narration),
	}, nil
}
