package observations

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/julianstephens/anchor/internal/constants"
	"github.com/julianstephens/anchor/internal/models"
)

// ErrNoJSON is returned when a completion contains nothing that decodes as JSON.
var ErrNoJSON = errors.New("observations: no JSON found in response")

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)```")

// Entry is one decoded element of the model's observation array. Fields that are
// absent or of the wrong JSON type are left nil so Sanitize can drop the entry.
type Entry struct {
	Category    *string
	Observation *string
	Confidence  *float64
	EntityRefs  []json.RawMessage
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var category, text string
	if decodeField(fields, "category", &category) {
		e.Category = &category
	}
	if decodeField(fields, "observation", &text) {
		e.Observation = &text
	}
	var confidence float64
	if decodeField(fields, "confidence", &confidence) {
		e.Confidence = &confidence
	}
	var refs []json.RawMessage
	if decodeField(fields, "entity_refs", &refs) {
		e.EntityRefs = refs
	}
	return nil
}

// decodeField reports whether fields[key] is present, non-null and of v's type.
func decodeField(fields map[string]json.RawMessage, key string, v any) bool {
	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// ParseResult is the decoded array of entries from a completion.
type ParseResult struct {
	Entries []Entry
}

// Payload is a sanitized observation ready to be stored.
type Payload struct {
	Category   models.ObservationCategory
	Text       string
	Confidence int
	EntityRefs []models.EntityRef
}

// ParseResponse extracts the observation entries from completion text. It accepts
// a bare array, an {"observations": [...]} wrapper or a single entry object, either
// raw or inside a fenced code block. Array elements that are not objects are skipped.
func ParseResponse(text string) (ParseResult, error) {
	doc, ok := locateJSON(text)
	if !ok {
		return ParseResult{}, ErrNoJSON
	}

	var elems []json.RawMessage
	switch doc[0] {
	case '[':
		if err := json.Unmarshal(doc, &elems); err != nil {
			return ParseResult{}, fmt.Errorf("decoding observation array: %w", err)
		}
	case '{':
		var wrapper struct {
			Observations *[]json.RawMessage `json:"observations"`
		}
		if err := json.Unmarshal(doc, &wrapper); err != nil {
			return ParseResult{}, fmt.Errorf("decoding observation object: %w", err)
		}
		if wrapper.Observations != nil {
			elems = *wrapper.Observations
		} else {
			elems = []json.RawMessage{doc}
		}
	default:
		return ParseResult{}, ErrNoJSON
	}

	result := ParseResult{Entries: make([]Entry, 0, len(elems))}
	for _, raw := range elems {
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		result.Entries = append(result.Entries, entry)
	}
	return result, nil
}

// locateJSON returns the first JSON array or object found in text.
func locateJSON(text string) ([]byte, bool) {
	candidates := make([]string, 0, 3)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, text)

	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if json.Valid([]byte(c)) && (c[0] == '[' || c[0] == '{') {
			return []byte(c), true
		}
		if span, ok := outermostSpan(c); ok {
			return span, true
		}
	}
	return nil, false
}

// outermostSpan finds the first '[' or '{' and the widest matching closer after it
// that yields valid JSON.
func outermostSpan(s string) ([]byte, bool) {
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return nil, false
	}
	closer := byte(']')
	if s[start] == '{' {
		closer = '}'
	}
	b := []byte(s)
	for end := bytes.LastIndexByte(b, closer); end > start; end = bytes.LastIndexByte(b[:end], closer) {
		if span := b[start : end+1]; json.Valid(span) {
			return span, true
		}
	}
	return nil, false
}

// Sanitize drops incomplete entries and normalizes the rest: unknown categories
// become growth_signal, text is truncated, confidence is rounded and clamped, and
// malformed entity refs are removed.
func Sanitize(result ParseResult) []Payload {
	payloads := make([]Payload, 0, len(result.Entries))
	for _, e := range result.Entries {
		if e.Category == nil || e.Observation == nil || e.Confidence == nil {
			continue
		}

		category := models.ObservationCategory(strings.TrimSpace(*e.Category))
		if !category.IsValid() {
			category = models.CategoryGrowthSignal
		}

		payloads = append(payloads, Payload{
			Category:   category,
			Text:       truncate(strings.TrimSpace(*e.Observation), constants.MaxObservationLength),
			Confidence: clampConfidence(*e.Confidence),
			EntityRefs: sanitizeRefs(e.EntityRefs),
		})
	}
	return payloads
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func clampConfidence(f float64) int {
	if math.IsNaN(f) || f < constants.MinConfidence {
		return constants.MinConfidence
	}
	if f > constants.MaxConfidence {
		return constants.MaxConfidence
	}
	return int(math.Round(f))
}

func sanitizeRefs(raw []json.RawMessage) []models.EntityRef {
	var refs []models.EntityRef
	for _, r := range raw {
		var ref struct {
			Type *string `json:"type"`
			ID   *string `json:"id"`
		}
		if err := json.Unmarshal(r, &ref); err != nil {
			continue
		}
		if ref.Type == nil || ref.ID == nil || *ref.ID == "" {
			continue
		}
		switch t := models.EntityType(*ref.Type); t {
		case models.EntityHabit, models.EntityGoal, models.EntityIdentityMetric:
			refs = append(refs, models.EntityRef{Type: t, ID: *ref.ID})
		}
	}
	return refs
}
