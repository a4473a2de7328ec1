package api

// Document is a stored document returned by a similarity query,
// ranked by ascending cosine distance to the query embedding.
type Document struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// DocumentPreview carries a truncated view of a matched document,
// suitable for sending to a client before the full answer.
type DocumentPreview struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Preview string `json:"preview"`
}

// Preview truncates the document content to at most limit runes.
func (d Document) Preview(limit int) DocumentPreview {
	text := d.Content
	if r := []rune(text); len(r) > limit {
		text = string(r[:limit]) + "..."
	}
	return DocumentPreview{
		ID:      d.ID,
		Title:   d.Title,
		Preview: text,
	}
}
