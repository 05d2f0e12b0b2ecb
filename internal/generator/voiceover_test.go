package generator

import (
	"context"
	"testing"

	"github.com/keylia/api/internal/breaker"
	"github.com/keylia/api/internal/client"
	"github.com/keylia/api/internal/model"
)

type fakeSynthesizer struct {
	audio   []byte
	err     error
	lastReq *client.SynthesizeRequest
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, req *client.SynthesizeRequest) ([]byte, error) {
	f.lastReq = req
	return f.audio, f.err
}

func (f *fakeSynthesizer) ListVoices(ctx context.Context) ([]model.VoiceOption, error) {
	return nil, nil
}

func TestEstimateDuration(t *testing.T) {
	// 10 words at 2.5 words per second.
	text := "one two three four five six seven eight nine ten"
	if got := EstimateDuration(text); got != 4.0 {
		t.Errorf("EstimateDuration = %v, want 4.0", got)
	}
}

func TestVoiceoverGenerateJoinsFullNarration(t *testing.T) {
	tts := &fakeSynthesizer{audio: []byte("mp3-bytes")}
	g := NewVoiceoverGenerator(tts, breaker.NewRegistry())

	script := &model.GeneratedScript{
		Hook: "POV: you found it",
		Scenes: []model.ScriptScene{
			{SceneNumber: 1, Narration: "the kitchen is insane"},
			{SceneNumber: 2, Narration: "wait for the backyard"},
		},
		CTA: "DM me for details",
	}

	result, err := g.Generate(context.Background(), script, model.VoiceSettings{Gender: "female"})
	if err != nil {
		t.Fatal(err)
	}

	want := "POV: you found it the kitchen is insane wait for the backyard DM me for details"
	if tts.lastReq.Text != want {
		t.Errorf("synthesized text = %q, want %q", tts.lastReq.Text, want)
	}
	if string(result.AudioData) != "mp3-bytes" {
		t.Error("audio bytes not returned")
	}
	if result.CharactersUsed != len(want) {
		t.Errorf("CharactersUsed = %d, want %d", result.CharactersUsed, len(want))
	}
	if result.DurationSeconds != EstimateDuration(want) {
		t.Errorf("DurationSeconds = %v", result.DurationSeconds)
	}
}

func TestVoiceoverGenerateDefaultsVoice(t *testing.T) {
	tts := &fakeSynthesizer{audio: []byte("x")}
	g := NewVoiceoverGenerator(tts, breaker.NewRegistry())

	script := &model.GeneratedScript{Scenes: []model.ScriptScene{{Narration: "hello there"}}}
	if _, err := g.Generate(context.Background(), script, model.VoiceSettings{Gender: "male"}); err != nil {
		t.Fatal(err)
	}
	if tts.lastReq.VoiceID != client.DefaultVoiceID("male") {
		t.Errorf("expected default male voice, got %q", tts.lastReq.VoiceID)
	}
}

func TestVoiceoverGenerateEmptyScript(t *testing.T) {
	g := NewVoiceoverGenerator(&fakeSynthesizer{}, breaker.NewRegistry())
	if _, err := g.Generate(context.Background(), &model.GeneratedScript{}, model.VoiceSettings{}); err == nil {
		t.Fatal("expected error for empty narration")
	}
}
