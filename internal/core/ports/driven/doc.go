// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Normaliser: Transforms raw corpus files into documents
//   - NormaliserRegistry: Selects the normaliser for a file
//   - PostProcessorPipeline: Turns documents into chunks
//   - EmbeddingService: Generates vector embeddings
//   - VectorIndex: Stores vectors and answers similarity queries
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Answer generation. Without it, retrieval still works
//     but asking is disabled.
//   - UsageLog: Durable usage accounting. Without it, totals are
//     process-lifetime only.
//   - PromptStore: Prompt template overrides. Without it, built-in
//     prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
