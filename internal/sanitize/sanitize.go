// Package sanitize neutralizes user-supplied text before it is embedded in
// AI prompts, to limit prompt injection and keep generation inputs bounded.
package sanitize

import (
	"html"
	"regexp"
	"strings"

	"github.com/keylia/api/internal/model"
)

// Maximum lengths per field type.
const (
	MaxAddress      = 500
	MaxDescription  = 5000
	MaxFeature      = 200
	MaxCity         = 100
	MaxNeighborhood = 100
	MaxHeadline     = 300
	MaxDefault      = 1000
)

// Patterns that could be used to override or extract instructions. Matches
// are replaced with a filter marker rather than silently dropped so that
// downstream text keeps its shape.
var dangerousPatterns = []*regexp.Regexp{
	// Instruction overrides
	regexp.MustCompile(`(?i)ignore (all )?(previous|prior|above) (instructions?|prompts?)`),
	regexp.MustCompile(`(?i)disregard (all )?(previous|prior|above)`),
	regexp.MustCompile(`(?i)forget (all )?(previous|prior|above)`),
	regexp.MustCompile(`(?i)override (all )?(previous|prior|above)`),
	// System prompt extraction attempts
	regexp.MustCompile(`(?i)(show|reveal|display|print|output) (your|the|my)? ?(system|initial) ?(prompt|instructions?)`),
	regexp.MustCompile(`(?i)what (are|is) your (system|initial) (prompt|instructions?)`),
	// Role manipulation
	regexp.MustCompile(`(?i)you are now`),
	regexp.MustCompile(`(?i)act as if`),
	regexp.MustCompile(`(?i)pretend (to be|you are)`),
	regexp.MustCompile(`(?i)assume the role`),
	// Delimiter injection
	regexp.MustCompile("(?i)```system"),
	regexp.MustCompile(`(?i)<system>`),
	regexp.MustCompile(`(?i)</system>`),
	regexp.MustCompile(`(?i)\[INST\]`),
	regexp.MustCompile(`(?i)\[/INST\]`),
}

var (
	controlChars       = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]")
	controlAndNewlines = regexp.MustCompile("[\x00-\x1f\x7f]")
	collapseSpace      = regexp.MustCompile(`\s+`)
)

// FilterMarker replaces any matched injection pattern.
const FilterMarker = "[FILTERED]"

// Text sanitizes a single free-text field: trims, escapes markup,
// neutralizes injection patterns, strips control characters and enforces
// maxLength with a truncation marker.
func Text(text string, maxLength int, allowNewlines bool) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	text = html.EscapeString(text)

	for _, pattern := range dangerousPatterns {
		text = pattern.ReplaceAllString(text, FilterMarker)
	}

	if allowNewlines {
		text = controlChars.ReplaceAllString(text, "")
	} else {
		text = controlAndNewlines.ReplaceAllString(text, " ")
		text = collapseSpace.ReplaceAllString(text, " ")
	}

	if maxLength <= 0 {
		maxLength = MaxDefault
	}
	if len(text) > maxLength {
		text = text[:maxLength] + "..."
	}

	return text
}

// Line sanitizes a field that must stay on one line.
func Line(text string, maxLength int) string {
	return Text(text, maxLength, false)
}

// Listing returns a copy of the listing with every free-text field
// sanitized for prompt use.
func Listing(l model.Listing) model.Listing {
	out := l
	out.Address = Line(l.Address, MaxAddress)
	out.Neighborhood = Line(l.Neighborhood, MaxNeighborhood)
	out.City = Line(l.City, MaxCity)
	out.PropertyType = Line(l.PropertyType, MaxDefault)
	out.Status = Line(l.Status, MaxDefault)
	out.Target = Line(l.Target, MaxCity)

	features := l.Features
	if len(features) > 20 {
		features = features[:20]
	}
	out.Features = make([]string, 0, len(features))
	for _, f := range features {
		if s := Line(f, MaxFeature); s != "" {
			out.Features = append(out.Features, s)
		}
	}

	return out
}

// StyleSettings validates raw style settings into typed values, falling
// back to defaults for anything outside the whitelist.
func StyleSettings(raw model.StyleSettingsRequest) model.StyleSettings {
	out := model.StyleSettings{
		Tone:       model.ToneModern,
		Pace:       model.PaceModerate,
		VideoModel: model.VideoModelKling,
	}

	for _, t := range model.ValidTones {
		if strings.EqualFold(raw.Tone, string(t)) {
			out.Tone = t
			break
		}
	}
	for _, p := range model.ValidPaces {
		if strings.EqualFold(raw.Pace, string(p)) {
			out.Pace = p
			break
		}
	}
	for _, m := range model.ValidVideoModels {
		if strings.EqualFold(raw.VideoModel, string(m)) {
			out.VideoModel = m
			break
		}
	}
	if raw.MusicURL != "" && (strings.HasPrefix(raw.MusicURL, "https://") || strings.HasPrefix(raw.MusicURL, "http://")) {
		out.MusicURL = raw.MusicURL
	}

	return out
}

var voiceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// VoiceSettings validates raw voice settings into typed values.
func VoiceSettings(raw model.VoiceSettingsRequest) model.VoiceSettings {
	out := model.VoiceSettings{
		Enabled:  true,
		Language: "en-US",
		Style:    model.VoiceStyleProfessional,
		Gender:   "female",
	}

	allowedLanguages := []string{"en-US", "en-GB", "en-AU", "es-ES", "es-MX", "fr-FR"}
	for _, lang := range allowedLanguages {
		if raw.Language == lang {
			out.Language = lang
			break
		}
	}
	for _, s := range model.ValidVoiceStyles {
		if strings.EqualFold(raw.Style, string(s)) {
			out.Style = s
			break
		}
	}
	if raw.Gender == "male" || raw.Gender == "female" {
		out.Gender = raw.Gender
	}
	if raw.VoiceID != "" && voiceIDPattern.MatchString(raw.VoiceID) {
		id := raw.VoiceID
		if len(id) > 50 {
			id = id[:50]
		}
		out.VoiceID = id
	}

	return out
}
