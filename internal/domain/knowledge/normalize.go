package knowledge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/studyflow-ai/studyflow/internal/domain"
)

// ParseExtraction decodes raw generator output into untyped JSON.
// Providers routinely wrap their JSON in markdown code fences; those are
// stripped before decoding. Undecodable payloads fail with
// ErrMalformedExtraction.
func ParseExtraction(data []byte) (any, error) {
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "```") {
		var kept []string
		for _, line := range strings.Split(text, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				continue
			}
			kept = append(kept, line)
		}
		text = strings.TrimSpace(strings.Join(kept, "\n"))
	}

	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("decode extraction: %v: %w", err, domain.ErrMalformedExtraction)
	}
	return raw, nil
}

// Normalize converts untyped provider JSON into the canonical structure.
// Shapes are tried in fixed priority order, first match wins:
//
//  1. a JSON array — each element becomes a chapter with no topics;
//  2. an object with "chapters" — already canonical, decoded as given
//     without re-validating nested ids;
//  3. an object with "knowledge_structure" — same element-to-chapter
//     mapping as (1), reading from that key;
//  4. an object with "sections" — one synthetic chapter wrapping every
//     section as a topic; a section's "types" list becomes formulas.
//
// Missing ids and titles are defaulted positionally (c1, t1, f1, ...);
// malformed nested fields degrade to empty strings, never errors. Only a
// completely unrecognized shape fails, with ErrMalformedExtraction.
func Normalize(raw any) (Structure, error) {
	if items, ok := raw.([]any); ok {
		return Structure{Chapters: chaptersFromList(items)}, nil
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return Structure{}, fmt.Errorf("unrecognized extraction shape %T: %w", raw, domain.ErrMalformedExtraction)
	}

	if _, ok := obj["chapters"]; ok {
		return decodeCanonical(obj)
	}

	if items, ok := obj["knowledge_structure"].([]any); ok {
		return Structure{Chapters: chaptersFromList(items)}, nil
	}

	if sections, ok := obj["sections"].([]any); ok {
		return fromSections(obj, sections), nil
	}

	return Structure{}, fmt.Errorf("unrecognized extraction keys: %w", domain.ErrMalformedExtraction)
}

// chaptersFromList maps a list of loosely-shaped elements onto chapters with
// empty topic lists.
func chaptersFromList(items []any) []Chapter {
	chapters := make([]Chapter, 0, len(items))
	for i, item := range items {
		m, _ := item.(map[string]any)
		chapters = append(chapters, Chapter{
			ID:      stringField(m, "id", fmt.Sprintf("c%d", i+1)),
			Title:   stringField(m, "title", fmt.Sprintf("Chapter %d", i+1)),
			Content: stringField(m, "content", ""),
			Topics:  []Topic{},
		})
	}
	return chapters
}

// decodeCanonical round-trips an already-canonical object through JSON into
// the typed structure. Fields the schema does not know are dropped; fields
// of the wrong type zero out. Nested ids pass through as given.
func decodeCanonical(obj map[string]any) (Structure, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return Structure{}, fmt.Errorf("re-encode canonical extraction: %v: %w", err, domain.ErrMalformedExtraction)
	}
	var s Structure
	if err := json.Unmarshal(data, &s); err != nil {
		return Structure{}, fmt.Errorf("decode canonical extraction: %v: %w", err, domain.ErrMalformedExtraction)
	}
	return s, nil
}

// fromSections wraps a flat sections list in a single synthetic chapter.
func fromSections(obj map[string]any, sections []any) Structure {
	chapter := Chapter{
		ID:      "c1",
		Title:   stringField(obj, "unit", "Unknown"),
		Content: stringField(obj, "course", ""),
		Topics:  make([]Topic, 0, len(sections)),
	}

	for i, item := range sections {
		m, _ := item.(map[string]any)
		topic := Topic{
			ID:       fmt.Sprintf("t%d", i+1),
			Title:    stringField(m, "title", fmt.Sprintf("Section %d", i+1)),
			Content:  stringField(m, "definition", ""),
			Formulas: []Formula{},
			Examples: []Example{},
		}
		if types, ok := m["types"].([]any); ok {
			for j, t := range types {
				content, _ := t.(string)
				topic.Formulas = append(topic.Formulas, Formula{
					ID:      fmt.Sprintf("f%d", j+1),
					Content: content,
				})
			}
		}
		chapter.Topics = append(chapter.Topics, topic)
	}

	return Structure{Chapters: []Chapter{chapter}}
}

func stringField(m map[string]any, key, def string) string {
	if m == nil {
		return def
	}
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}
