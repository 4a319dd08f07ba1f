// Package suggest asks a text engine for harmony, chord and melody ideas.
// Anything the engine gets wrong is replaced by a fixed fallback, so a
// request always gets an answer.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/chord"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
)

var (
	fallbackHarmony      = []string{"C4", "E4", "G4", "A4"}
	defaultHarmony       = []string{"C4", "E4", "G4"}
	defaultProgressions  = [][]string{{"C", "E", "G"}, {"F", "A", "C"}}
	fallbackProgressions = map[string][][]string{
		"C": {{"C", "E", "G"}, {"F", "A", "C"}, {"G", "B", "D"}},
		"G": {{"G", "B", "D"}, {"C", "E", "G"}, {"D", "F#", "A"}},
	}
)

type Harmony struct {
	Suggestions []string       `json:"suggestions"`
	Reason      string         `json:"reason"`
	Analysis    chord.Analysis `json:"analysis"`
}

type Progressions struct {
	Progressions [][]string `json:"progressions"`
	Reason       string     `json:"reason"`
	Key          string     `json:"key"`
}

type Variations struct {
	Variations [][]string   `json:"variations"`
	Reason     string       `json:"reason"`
	Original   []model.Note `json:"original"`
}

type Service struct {
	engine Engine
	log    *zap.Logger
}

// New returns a Service. A nil engine answers every request with the
// fallbacks.
func New(engine Engine, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{engine: engine, log: log}
}

// ask returns the JSON object in the engine's answer, or false.
func (s *Service) ask(ctx context.Context, system, prompt string) (gjson.Result, bool) {
	if s.engine == nil {
		return gjson.Result{}, false
	}
	text, err := s.engine.Complete(ctx, system, prompt)
	if err != nil {
		s.log.Warn("suggestion engine failed", zap.Error(err))
		return gjson.Result{}, false
	}
	raw := extractObject(text)
	if !gjson.Valid(raw) {
		s.log.Debug("suggestion engine returned invalid json", zap.String("text", text))
		return gjson.Result{}, false
	}
	res := gjson.Parse(raw)
	return res, res.IsObject()
}

// extractObject trims prose or code fences around the outermost object.
func extractObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return text
	}
	return text[start : end+1]
}

func stringList(r gjson.Result) ([]string, bool) {
	if !r.IsArray() {
		return nil, false
	}
	res := []string{}
	for _, v := range r.Array() {
		if v.Type != gjson.String {
			return nil, false
		}
		res = append(res, v.String())
	}
	return res, true
}

func stringGrid(r gjson.Result) ([][]string, bool) {
	if !r.IsArray() {
		return nil, false
	}
	res := [][]string{}
	for _, v := range r.Array() {
		row, ok := stringList(v)
		if !ok {
			return nil, false
		}
		res = append(res, row)
	}
	return res, true
}

func reason(r gjson.Result, def string) string {
	if v := r.Get("reason"); v.Type == gjson.String && v.String() != "" {
		return v.String()
	}
	return def
}

func noteNames(notes []model.Note) string {
	return strings.Join(pitches(notes), ", ")
}

func contextJSON(c map[string]any) string {
	if c == nil {
		c = map[string]any{}
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (s *Service) Harmony(ctx context.Context, req model.HarmonyRequest) Harmony {
	analysis := chord.Analyze(req.Notes)
	style := req.Style
	if style == "" {
		style = "classical"
	}
	system := `You are a music theory expert. Provide harmony suggestions in JSON format with a "suggestions" array of note names (e.g., ["C4", "E4", "G4"]) and a "reason" explanation.`
	prompt := fmt.Sprintf(`Given these notes: %s
Current context: %s
Style: %s
Key: %s
Current chords: %s

Suggest 3-5 harmony notes that would complement these notes. Return only valid JSON with "suggestions" array and "reason" string.`,
		noteNames(req.Notes), contextJSON(req.Context), style, analysis.Key, strings.Join(analysis.Chords, ", "))

	res, ok := s.ask(ctx, system, prompt)
	if !ok {
		return Harmony{Suggestions: slices.Clone(fallbackHarmony), Reason: "Basic triad harmony", Analysis: analysis}
	}
	suggestions, ok := stringList(res.Get("suggestions"))
	if !ok {
		suggestions = slices.Clone(defaultHarmony)
	}
	return Harmony{Suggestions: suggestions, Reason: reason(res, "Harmony suggestion"), Analysis: analysis}
}

func (s *Service) Chords(ctx context.Context, req model.ChordsRequest) Progressions {
	key := req.Key
	if key == "" {
		key = "C"
	}
	style := req.Style
	if style == "" {
		style = "pop"
	}
	system := `You are a music theory expert. Provide chord progression suggestions in JSON format with a "progressions" array of chord arrays (e.g., [["C", "E", "G"], ["D", "F", "A"]]) and a "reason" explanation.`
	prompt := fmt.Sprintf(`Current chords: %s
Key: %s
Style: %s

Suggest 2-3 chord progressions (each as an array of note names) that would work well. Return only valid JSON with "progressions" array and "reason" string.`,
		strings.Join(req.CurrentChords, ", "), key, style)

	res, ok := s.ask(ctx, system, prompt)
	if !ok {
		fallback, found := fallbackProgressions[key]
		if !found {
			fallback = fallbackProgressions["C"]
		}
		return Progressions{Progressions: fallback, Reason: "Common chord progression", Key: key}
	}
	progressions, ok := stringGrid(res.Get("progressions"))
	if !ok {
		progressions = defaultProgressions
	}
	return Progressions{Progressions: progressions, Reason: reason(res, "Chord progression suggestion"), Key: key}
}

func (s *Service) Melody(ctx context.Context, req model.MelodyRequest) Variations {
	count := req.Variations
	if count <= 0 {
		count = 3
	}
	original := req.Melody
	if original == nil {
		original = []model.Note{}
	}
	unchanged := [][]string{pitches(original)}

	system := `You are a music theory expert. Provide melody variations in JSON format with a "variations" array where each variation is an array of note names, and a "reason" explanation.`
	prompt := fmt.Sprintf(`Original melody: %s
Context: %s
Number of variations: %d

Suggest %d melodic variations that maintain the same rhythm and feel. Return only valid JSON with "variations" array and "reason" string.`,
		noteNames(original), contextJSON(req.Context), count, count)

	res, ok := s.ask(ctx, system, prompt)
	if !ok {
		return Variations{Variations: unchanged, Reason: "Original melody", Original: original}
	}
	variations, ok := stringGrid(res.Get("variations"))
	if !ok {
		variations = unchanged
	}
	return Variations{Variations: variations, Reason: reason(res, "Melody variation"), Original: original}
}

func pitches(notes []model.Note) []string {
	res := make([]string, len(notes))
	for i, n := range notes {
		res[i] = n.Pitch
	}
	return res
}
