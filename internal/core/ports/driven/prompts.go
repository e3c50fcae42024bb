package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or fall back to
// templates embedded in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Implementations return the built-in default when no override
	// exists on disk.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next
	// access. Useful when prompts have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptAnswerSystem is the system instruction for answering
	// questions against retrieved passages. No format placeholders.
	PromptAnswerSystem = "answer_system"

	// PromptAnswerUser frames the question and its supporting context.
	// The template expects two %s placeholders: the question, then the
	// formatted passages.
	PromptAnswerUser = "answer_user"
)
