// Package generator holds the AI content generators of the tour pipeline:
// script writing, voiceover synthesis and per-scene video clips. Each
// generator wraps its provider client in a circuit breaker.
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/keylia/api/internal/breaker"
	"github.com/keylia/api/internal/jsonextract"
	"github.com/keylia/api/internal/model"
	"github.com/keylia/api/internal/sanitize"
)

// Completer is the LLM text-completion dependency.
type Completer interface {
	Complete(ctx context.Context, system, user string, temperature float64) (string, error)
}

// ScriptGenerator produces tour-video scripts from listing facts.
type ScriptGenerator struct {
	llm     Completer
	breaker *breaker.Breaker
}

// NewScriptGenerator creates a script generator guarded by the breaker
// registered for the LLM provider.
func NewScriptGenerator(llm Completer, breakers *breaker.Registry) *ScriptGenerator {
	return &ScriptGenerator{
		llm:     llm,
		breaker: breakers.Get("anthropic"),
	}
}

// durationConfig holds per-duration word budgets for natural voiceover pacing
// at roughly 2.5 spoken words per second.
type durationConfig struct {
	TotalWords    int
	WordsPerScene int
	Style         string
	HookWords     int
}

var durationConfigs = map[int]durationConfig{
	15: {TotalWords: 35, WordsPerScene: 10, Style: "punchy and fast-paced", HookWords: 8},
	30: {TotalWords: 70, WordsPerScene: 12, Style: "engaging but brisk", HookWords: 10},
	60: {TotalWords: 140, WordsPerScene: 15, Style: "detailed yet conversational", HookWords: 12},
}

var toneGuidance = map[model.Tone]string{
	model.ToneLuxury:  "sophisticated, exclusive, aspirational language. Use words like 'stunning', 'exquisite', 'exceptional'",
	model.ToneCozy:    "warm, inviting, comfortable language. Use words like 'charming', 'welcoming', 'perfect for'",
	model.ToneModern:  "clean, contemporary, fresh language. Use words like 'sleek', 'updated', 'move-in ready'",
	model.ToneMinimal: "simple, understated, elegant language. Focus on space and light",
	model.ToneBold:    "confident, exciting, attention-grabbing language. Use words like 'incredible', 'must-see', 'wow'",
}

// FormatPrice renders a listing price in the short social style used in
// prompts: "$1.2M", "$450K", or a neutral placeholder when unknown.
func FormatPrice(price int64) string {
	switch {
	case price >= 1_000_000:
		s := fmt.Sprintf("$%.1fM", float64(price)/1_000_000)
		return strings.Replace(s, ".0M", "M", 1)
	case price > 0:
		return fmt.Sprintf("$%dK", price/1000)
	default:
		return "this price"
	}
}

// Generate writes a script for the listing. The listing and photo
// descriptors must already be sanitized; sceneCount and durationSeconds come
// from the scene plan.
func (g *ScriptGenerator) Generate(ctx context.Context, listing model.Listing, photos []model.PhotoDescriptor, style model.StyleSettings, sceneCount, durationSeconds int) (*model.GeneratedScript, error) {
	system := buildSystemPrompt(listing, style.Tone, durationSeconds)
	user := buildUserPrompt(listing, photos, sceneCount, durationSeconds)

	var raw string
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = g.llm.Complete(ctx, system, user, 0.8)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("script generation failed: %w", err)
	}

	var script model.GeneratedScript
	if err := jsonextract.Object(raw, &script); err != nil {
		return nil, fmt.Errorf("script generation returned unparseable output: %w", err)
	}
	if len(script.Scenes) == 0 {
		return nil, fmt.Errorf("script generation returned no scenes")
	}

	if script.EstimatedWordCount == 0 {
		script.EstimatedWordCount = len(strings.Fields(script.FullNarration()))
	}

	return &script, nil
}

func buildSystemPrompt(listing model.Listing, tone model.Tone, durationSeconds int) string {
	cfg, ok := durationConfigs[durationSeconds]
	if !ok {
		cfg = durationConfigs[30]
	}
	guidance, ok := toneGuidance[tone]
	if !ok {
		guidance = toneGuidance[model.ToneModern]
	}
	priceStr := FormatPrice(listing.Price)
	area := listing.Neighborhood
	if area == "" {
		area = listing.City
	}

	return fmt.Sprintf(`<BANNED_PHRASES>
NEVER use these phrases - they will cause immediate rejection:
- "Welcome to" (BANNED - never start any sentence with this)
- "Step inside"
- "This stunning property"
- "This beautiful home"
- "Featuring"
- "Boasts"
- "Nestled"
- "Situated"
- Any phrase that sounds like a real estate listing or brochure
</BANNED_PHRASES>

You write TikTok/Instagram Reels voiceovers that sound like a 25-year-old influencer FaceTiming their friend about a house they just toured. NOT a real estate agent. NOT a brochure.

<WRONG_EXAMPLE>
"Welcome to this stunning 4-bedroom home in %s. This beautiful property features an updated kitchen and spacious living areas."
</WRONG_EXAMPLE>

<CORRECT_EXAMPLE>
"Okay wait... %s for THIS in %s?? Four beds, the kitchen is literally insane, and don't even get me started on the backyard."
</CORRECT_EXAMPLE>

STYLE: %s | ~%d total words | ~%d per scene

TONE: %s

Start with ONE of these hook styles:
- "POV: you just found..."
- "Okay but [price] for THIS??"
- "Wait till you see..."
- "This might be the one..."
- "Stop scrolling if you're looking in [area]"

Output ONLY raw JSON. No markdown.`, area, priceStr, area, cfg.Style, cfg.TotalWords, cfg.WordsPerScene, guidance)
}

// maxPromptPhotos caps how many photo descriptors go into the prompt so a
// large upload cannot blow the context window.
const maxPromptPhotos = 12

func photoDescriptions(photos []model.PhotoDescriptor) string {
	if len(photos) > maxPromptPhotos {
		photos = photos[:maxPromptPhotos]
	}
	if len(photos) == 0 {
		return "No photos uploaded yet"
	}

	lines := make([]string, 0, len(photos))
	for i, p := range photos {
		category := p.Category
		if category == "" {
			category = "unknown"
		}
		description := p.Description
		if description == "" {
			description = "No description"
		}
		lines = append(lines, fmt.Sprintf("Photo %d: %s - %s", i+1, category, description))
	}
	return strings.Join(lines, "\n")
}

func buildUserPrompt(listing model.Listing, photos []model.PhotoDescriptor, sceneCount, durationSeconds int) string {
	priceStr := FormatPrice(listing.Price)
	area := listing.Neighborhood
	if area == "" {
		area = listing.City
	}
	if area == "" {
		area = "the city"
	}

	sqftStr := "spacious"
	if listing.SquareFeet > 0 {
		sqftStr = fmt.Sprintf("%d", listing.SquareFeet)
	}

	features := "great layout"
	if len(listing.Features) > 0 {
		top := listing.Features
		if len(top) > 3 {
			top = top[:3]
		}
		features = strings.Join(top, ", ")
	}

	address := listing.Address
	if address == "" {
		address = "Amazing Property"
	}

	cityTag := strings.ToLower(strings.ReplaceAll(listing.City, " ", ""))
	if cityTag == "" {
		cityTag = "home"
	}

	return fmt.Sprintf(`Listing:
📍 %s
💰 %s | 🛏️ %dbd/%.1fba | 📐 %ssqft
📌 %s
✨ %s

Photos in scene order:
%s

Write %d scenes for a %ds video. Return JSON:
{
    "hook": "POV: you just found your dream home in %s",
    "scenes": [
        {"scene_number": 1, "narration": "Okay %s for this?? Let me show you around..."},
        {"scene_number": 2, "narration": "The kitchen is giving everything it needs to give..."},
        {"scene_number": 3, "narration": "And don't even get me started on this view..."}
    ],
    "cta": "Save this and DM me if you want more details",
    "caption": "Found this gem in [area] and I'm obsessed. %s for [X]beds - thoughts?? 👀",
    "hashtags": ["realestate", "%s", "housetour", "dreamhome", "fyp"]
}

IMPORTANT: The example narrations above show the EXACT casual tone I need. Write similar vibes but for THIS specific property. Never use "Welcome to" or formal language.`,
		address, priceStr, listing.Bedrooms, listing.Bathrooms, sqftStr,
		area, features, photoDescriptions(photos),
		sceneCount, durationSeconds, area, priceStr, priceStr, cityTag)
}

// RegenerateSceneText rewrites a single scene's narration keeping continuity
// with its neighbors.
func (g *ScriptGenerator) RegenerateSceneText(ctx context.Context, prev, current, next string, durationMs int) (string, error) {
	if prev == "" {
		prev = "None - this is the first scene"
	}
	if next == "" {
		next = "None - this is the last scene"
	}

	user := fmt.Sprintf(`Rewrite ONLY this specific scene from a real estate video script.

## Context
Previous scene narration: "%s"
Current scene (to rewrite): "%s"
Next scene narration: "%s"

## Requirements
- Keep the same approximate duration (%d seconds)
- Maintain flow with surrounding scenes
- Highlight different aspects or use different phrasing
- On-screen text must be under 40 characters for mobile readability

Respond with JSON only (no markdown code blocks):
{
    "narration": "New voiceover text",
    "on_screen_text": "NEW TEXT",
    "emotion": "the emotional tone"
}`, sanitize.Line(prev, 500), sanitize.Line(current, 500), sanitize.Line(next, 500), durationMs/1000)

	var raw string
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = g.llm.Complete(ctx, "You are a real estate copywriter. Respond with valid JSON only.", user, 0.9)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("scene regeneration failed: %w", err)
	}

	var out struct {
		Narration string `json:"narration"`
	}
	if err := jsonextract.Object(raw, &out); err != nil {
		return "", fmt.Errorf("scene regeneration returned unparseable output: %w", err)
	}
	return out.Narration, nil
}
