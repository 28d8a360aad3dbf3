package models

// QuestionType represents different kinds of quiz questions
type QuestionType string

const (
	// MultipleChoice represents a question with one correct answer among options
	MultipleChoice QuestionType = "multiple_choice"
	// TrueFalse represents a true/false question
	TrueFalse QuestionType = "true_false"
)

// Question is a quiz question attached to a fact. Questions are cascade
// deleted with their fact; attempts referencing them are kept regardless.
type Question struct {
	ID            int          `json:"id" db:"id"`
	FactID        int          `json:"fact_id" db:"fact_id"`
	Type          QuestionType `json:"type" db:"type"`
	Prompt        string       `json:"prompt" db:"prompt"`
	CorrectAnswer string       `json:"correct_answer" db:"correct_answer"`
	Explanation   string       `json:"explanation" db:"explanation"`
	Difficulty    int          `json:"difficulty" db:"difficulty"` // 1-5 scale
}

// QuestionOption is one distractor or answer choice for a multiple choice
// question, kept in a child table rather than a serialized array.
type QuestionOption struct {
	QuestionID int    `json:"question_id" db:"question_id"`
	Position   int    `json:"position" db:"position"`
	Text       string `json:"text" db:"text"`
}

// QuestionWithOptions bundles a question with its answer choices the way
// the remote API delivers them.
type QuestionWithOptions struct {
	Question
	Options []string `json:"options" db:"-"`
}
