package domain

// SourceType tells the caller whether an answer came from retrieved passages
// or from the model's general knowledge.
type SourceType string

const (
	// SourceKnowledgeBase marks answers grounded in retrieved document passages.
	SourceKnowledgeBase SourceType = "knowledge_base"
	// SourceAIKnowledge marks answers produced without document context.
	SourceAIKnowledge SourceType = "ai_knowledge"
)

// Answer is the final question-answering result returned to the transport layer.
type Answer struct {
	Answer      string     `json:"answer"`
	Sources     []Source   `json:"sources"`
	SourceType  SourceType `json:"source_type"`
	PageNumbers []int      `json:"page_numbers"`
	Provider    string     `json:"provider"`
}
