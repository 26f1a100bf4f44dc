// internal/models/context.go
package models

// Paragraph is one paragraph of the source document with its position.
type Paragraph struct {
	Index   int    `json:"index"`
	Text    string `json:"text"`
	Section string `json:"section,omitempty"` // heading of the enclosing section
	Start   int    `json:"start"`             // byte offset in the document
	End     int    `json:"end"`
}

// Section is a heading-delimited slice of the document.
type Section struct {
	Index   int    `json:"index"`
	Heading string `json:"heading"`
	Level   int    `json:"level"`
	Text    string `json:"text"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// DocumentContext carries the document-level structure surrounding each
// placeholder occurrence. Created once per document, read-only afterwards.
type DocumentContext struct {
	DocumentType string      `json:"documentType"`
	Domain       string      `json:"domain"`
	Language     string      `json:"language"`
	Title        string      `json:"title,omitempty"`
	Paragraphs   []Paragraph `json:"paragraphs"`
	Sections     []Section   `json:"sections"`
}

// ParagraphAt returns the paragraph enclosing the given byte offset, or nil.
func (d *DocumentContext) ParagraphAt(pos int) *Paragraph {
	for i := range d.Paragraphs {
		if pos >= d.Paragraphs[i].Start && pos < d.Paragraphs[i].End {
			return &d.Paragraphs[i]
		}
	}
	return nil
}

// SectionAt returns the section enclosing the given byte offset, or nil.
func (d *DocumentContext) SectionAt(pos int) *Section {
	for i := range d.Sections {
		if pos >= d.Sections[i].Start && pos < d.Sections[i].End {
			return &d.Sections[i]
		}
	}
	return nil
}

// BusinessRule is one domain constraint supplied by the caller.
type BusinessRule struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords,omitempty"`
	Applies  []string `json:"applies,omitempty"` // placeholder types the rule constrains
}

// BusinessContext carries caller-supplied domain rules. Read-only.
type BusinessContext struct {
	BusinessType  string         `json:"businessType"`
	PrimaryDomain string         `json:"primaryDomain"`
	Rules         []BusinessRule `json:"rules,omitempty"`
	Metrics       []string       `json:"metrics,omitempty"` // known metric vocabulary
}
