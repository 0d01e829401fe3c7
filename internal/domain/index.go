package domain

// KeyPrefix namespaces every key this service writes to the store.
const KeyPrefix = "studyflow:"

// IndexEntry is one chunk written into a document's index partition.
type IndexEntry struct {
	ID     string
	Text   string
	Vector []float32
}

// IndexMeta describes what a document's partition currently holds. The text
// hash lets indexing skip work when the same content is submitted again.
type IndexMeta struct {
	TextHash   string
	Chunks     int
	Dimensions int
}
