// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// QuestionChanged is sent when the question input changes.
type QuestionChanged struct {
	Question string
}

// AskRequested is a command to answer a question.
type AskRequested struct {
	Question string
	Options  domain.RetrieveOptions
}

// AnswerCompleted carries a generated answer back to the model.
type AnswerCompleted struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// SourceSelected is sent when a grounding passage is selected.
type SourceSelected struct {
	Index int
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
