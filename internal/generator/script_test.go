package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/keylia/api/internal/breaker"
	"github.com/keylia/api/internal/model"
)

type fakeCompleter struct {
	response string
	err      error
	lastSys  string
	lastUser string
	calls    int
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	f.calls++
	f.lastSys = system
	f.lastUser = user
	return f.response, f.err
}

func testListing() model.Listing {
	return model.Listing{
		Address:    "42 Elm Street",
		City:       "Portland",
		Price:      750000,
		Bedrooms:   4,
		Bathrooms:  2.5,
		SquareFeet: 2100,
		Features:   []string{"pool", "garage", "garden", "solar"},
	}
}

func TestFormatPrice(t *testing.T) {
	cases := []struct {
		price int64
		want  string
	}{
		{1_200_000, "$1.2M"},
		{1_000_000, "$1M"},
		{750_000, "$750K"},
		{0, "this price"},
	}
	for _, c := range cases {
		if got := FormatPrice(c.price); got != c.want {
			t.Errorf("FormatPrice(%d) = %q, want %q", c.price, got, c.want)
		}
	}
}

func TestGenerateParsesScript(t *testing.T) {
	llm := &fakeCompleter{response: `{"hook":"POV: dream home","scenes":[{"scene_number":1,"narration":"okay this kitchen"},{"scene_number":2,"narration":"that backyard though"}],"cta":"DM me","caption":"obsessed","hashtags":["realestate"]}`}
	g := NewScriptGenerator(llm, breaker.NewRegistry())

	script, err := g.Generate(context.Background(), testListing(), nil, model.StyleSettings{Tone: model.ToneModern}, 2, 30)
	if err != nil {
		t.Fatal(err)
	}
	if script.Hook != "POV: dream home" || len(script.Scenes) != 2 {
		t.Errorf("unexpected script: %+v", script)
	}
	if script.EstimatedWordCount == 0 {
		t.Error("expected word count to be backfilled")
	}
}

func TestGeneratePromptCarriesListingFacts(t *testing.T) {
	llm := &fakeCompleter{response: `{"hook":"h","scenes":[{"scene_number":1,"narration":"n"}],"cta":"c"}`}
	g := NewScriptGenerator(llm, breaker.NewRegistry())

	if _, err := g.Generate(context.Background(), testListing(), nil, model.StyleSettings{Tone: model.ToneLuxury}, 3, 15); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(llm.lastUser, "42 Elm Street") {
		t.Error("user prompt missing address")
	}
	if !strings.Contains(llm.lastUser, "$750K") {
		t.Error("user prompt missing formatted price")
	}
	if !strings.Contains(llm.lastUser, "Write 3 scenes for a 15s video") {
		t.Errorf("user prompt missing scene directive: %s", llm.lastUser)
	}
	if !strings.Contains(llm.lastSys, "sophisticated, exclusive") {
		t.Error("system prompt missing luxury tone guidance")
	}
	if !strings.Contains(llm.lastSys, "punchy and fast-paced") {
		t.Error("system prompt missing 15s pacing style")
	}
}

func TestGeneratePromptListsPhotoDescriptors(t *testing.T) {
	llm := &fakeCompleter{response: `{"hook":"h","scenes":[{"scene_number":1,"narration":"n"}],"cta":"c"}`}
	g := NewScriptGenerator(llm, breaker.NewRegistry())

	photos := []model.PhotoDescriptor{
		{URL: "https://cdn/1.jpg", Category: "kitchen", Description: "marble island with pendant lights"},
		{URL: "https://cdn/2.jpg", Category: "backyard"},
		{URL: "https://cdn/3.jpg"},
	}
	if _, err := g.Generate(context.Background(), testListing(), photos, model.StyleSettings{}, 3, 30); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(llm.lastUser, "Photo 1: kitchen - marble island with pendant lights") {
		t.Errorf("user prompt missing first photo descriptor: %s", llm.lastUser)
	}
	if !strings.Contains(llm.lastUser, "Photo 2: backyard - No description") {
		t.Error("user prompt missing description fallback")
	}
	if !strings.Contains(llm.lastUser, "Photo 3: unknown - No description") {
		t.Error("user prompt missing category fallback")
	}
}

func TestPhotoDescriptionsCappedAtTwelve(t *testing.T) {
	photos := make([]model.PhotoDescriptor, 20)
	for i := range photos {
		photos[i] = model.PhotoDescriptor{Category: "room"}
	}

	got := photoDescriptions(photos)
	if !strings.Contains(got, "Photo 12:") {
		t.Error("expected twelfth photo to be listed")
	}
	if strings.Contains(got, "Photo 13:") {
		t.Error("expected photo list capped at twelve")
	}

	if got := photoDescriptions(nil); got != "No photos uploaded yet" {
		t.Errorf("empty photos = %q", got)
	}
}

func TestGenerateHandlesFencedOutput(t *testing.T) {
	llm := &fakeCompleter{response: "```json\n{\"hook\":\"h\",\"scenes\":[{\"scene_number\":1,\"narration\":\"n\"}],\"cta\":\"c\"}\n```"}
	g := NewScriptGenerator(llm, breaker.NewRegistry())

	script, err := g.Generate(context.Background(), testListing(), nil, model.StyleSettings{}, 1, 30)
	if err != nil {
		t.Fatal(err)
	}
	if script.Hook != "h" {
		t.Errorf("got %+v", script)
	}
}

func TestGenerateRejectsEmptyScenes(t *testing.T) {
	llm := &fakeCompleter{response: `{"hook":"h","scenes":[],"cta":"c"}`}
	g := NewScriptGenerator(llm, breaker.NewRegistry())

	if _, err := g.Generate(context.Background(), testListing(), nil, model.StyleSettings{}, 2, 30); err == nil {
		t.Fatal("expected error for script with no scenes")
	}
}

func TestGenerateBreakerOpensAfterRepeatedFailures(t *testing.T) {
	llm := &fakeCompleter{err: errors.New("api down")}
	reg := breaker.NewRegistry()
	g := NewScriptGenerator(llm, reg)

	for i := 0; i < 5; i++ {
		g.Generate(context.Background(), testListing(), nil, model.StyleSettings{}, 2, 30)
	}

	_, err := g.Generate(context.Background(), testListing(), nil, model.StyleSettings{}, 2, 30)
	if err == nil || !breaker.IsOpen(errors.Unwrap(err)) {
		t.Fatalf("expected breaker-open error, got %v", err)
	}
	if llm.calls != 5 {
		t.Errorf("expected 5 provider calls before fail-fast, got %d", llm.calls)
	}
}

func TestRegenerateSceneText(t *testing.T) {
	llm := &fakeCompleter{response: `{"narration":"fresh take on the kitchen","on_screen_text":"KITCHEN","emotion":"excitement"}`}
	g := NewScriptGenerator(llm, breaker.NewRegistry())

	text, err := g.RegenerateSceneText(context.Background(), "the hook", "old kitchen line", "", 6000)
	if err != nil {
		t.Fatal(err)
	}
	if text != "fresh take on the kitchen" {
		t.Errorf("got %q", text)
	}
	if !strings.Contains(llm.lastUser, "None - this is the last scene") {
		t.Error("expected last-scene placeholder for empty next narration")
	}
	if !strings.Contains(llm.lastUser, "(6 seconds)") {
		t.Error("expected duration rendered in seconds")
	}
}
