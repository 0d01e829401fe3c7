// Package knowledge defines the canonical chapter/topic/formula/example
// schema that every generation-provider output is normalized into.
package knowledge

// Structure is the canonical knowledge hierarchy for one document.
type Structure struct {
	DocumentID string    `json:"document_id,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	Chapters   []Chapter `json:"chapters"`
}

// Chapter is the top level of the hierarchy.
type Chapter struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Topics  []Topic `json:"topics"`
}

// Topic groups formulas and worked examples under a chapter.
type Topic struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Formulas []Formula `json:"formulas"`
	Examples []Example `json:"examples"`
}

// Formula is a single formula with an optional description.
type Formula struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// Example is a worked example with its solution.
type Example struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Solution string `json:"solution"`
}

// Counts summarizes a structure for the stats endpoint.
type Counts struct {
	Chapters int `json:"chapter_count"`
	Topics   int `json:"topic_count"`
	Formulas int `json:"formula_count"`
	Examples int `json:"example_count"`
}

// Summarize tallies entities across the hierarchy.
func Summarize(s Structure) Counts {
	c := Counts{Chapters: len(s.Chapters)}
	for _, ch := range s.Chapters {
		c.Topics += len(ch.Topics)
		for _, t := range ch.Topics {
			c.Formulas += len(t.Formulas)
			c.Examples += len(t.Examples)
		}
	}
	return c
}

// Fallback returns the fixed knowledge structure substituted when a
// provider's extraction cannot be normalized.
func Fallback() Structure {
	return Structure{
		Chapters: []Chapter{
			{
				ID:      "c1",
				Title:   "Chapter 1: Functions",
				Content: "Introduces the basic concept and properties of functions.",
				Topics: []Topic{
					{
						ID:      "t1",
						Title:   "Definition of a function",
						Content: "A function is a special kind of mapping between sets.",
						Formulas: []Formula{
							{
								ID:          "f1",
								Content:     "f(x) = y",
								Description: "Basic functional notation.",
							},
						},
						Examples: []Example{
							{
								ID:       "e1",
								Content:  "Evaluate f(x) = 2x + 1 at x = 3.",
								Solution: "f(3) = 2*3 + 1 = 7",
							},
						},
					},
				},
			},
		},
	}
}
