package models

// Term is a glossary entry from the glossary content module.
type Term struct {
	ID         string `json:"id"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
	VideoURL   string `json:"videoUrl,omitempty"`
}
