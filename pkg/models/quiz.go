package models

// Question is a single multiple-choice quiz question. Correct is the index of
// the right answer within the authored (unshuffled) options.
type Question struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Correct int      `json:"correct"`
	Hint    string   `json:"hint,omitempty"`
}

// Quiz is an authored quiz definition from the quizzes content module.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  string     `json:"difficulty"` // easy, medium or hard
	Duration    int        `json:"duration"`   // estimated minutes
	Questions   []Question `json:"questions"`
}
