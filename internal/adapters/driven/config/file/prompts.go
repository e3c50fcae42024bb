package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore serves prompt templates from user-editable .txt files,
// seeded with built-in defaults. The prompt directory is only created
// on first Load, never in the constructor, so building the service
// graph performs no I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	seedOnce  sync.Once
	seedErr   error
}

// builtins are the shipped prompt templates, also written out as the
// initial file contents so users have something concrete to edit.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var builtins = map[string]string{
	driven.PromptAnswerSystem: `You are a document analysis assistant answering questions about an indexed corpus.

Your role:
- Answer questions based on the provided document passages
- Provide clear, accurate information
- Cite the source documents and page numbers you relied on
- Explain complex material simply
- Always state when information is not found in the provided passages

Important:
- Base answers ONLY on the provided passages
- If the answer is not in the passages, say so clearly
- Cite specific sources and page numbers
- Use clear, professional language`,

	driven.PromptAnswerUser: `Based on the following document passages, please answer this question:

QUESTION: %s

RELEVANT PASSAGES:
%s

Please provide:
1. A direct answer to the question
2. The sources and page references you relied on
3. Any important context or clarifications

If the answer is not in the provided passages, please state that clearly.`,
}

// NewPromptStore returns a store rooted at promptDir, defaulting to
// ~/.docqa/prompts when empty.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".docqa", "prompts")
	}
	return &PromptStore{
		promptDir: promptDir,
		cache:     map[string]string{},
	}, nil
}

// Load returns the template for name: the cached copy when present,
// otherwise the file contents, otherwise the built-in default. The
// first call seeds the prompt directory with the defaults and a
// README. A seeding failure degrades to the built-ins rather than
// blocking answering.
func (s *PromptStore) Load(name string) (string, error) {
	s.seedOnce.Do(s.seed)
	if s.seedErr != nil {
		if prompt, ok := builtins[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.seedErr)
	}

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	raw, err := os.ReadFile(filepath.Join(s.promptDir, name+".txt"))
	if err != nil {
		if prompt, ok := builtins[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}
	prompt := strings.TrimSpace(string(raw))

	s.mu.Lock()
	if winner, ok := s.cache[name]; ok {
		prompt = winner
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload drops the cache so edited files are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = map[string]string{}
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// seed creates the prompt directory, the default template files, and
// the README. Existing files are left alone so user edits survive.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range builtins {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			s.seedErr = fmt.Errorf("create default prompt %q: %w", name, err)
			return
		}
	}

	s.seedErr = s.writeReadme()
}

func (s *PromptStore) writeReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	content := `# Docqa Prompts

This directory contains customisable prompts used when answering questions.

## Files

- ` + "`answer_system.txt`" + ` - System instruction for grounded answering
- ` + "`answer_user.txt`" + ` - Frames the question and retrieved passages

## Customisation

Edit any file to customise behaviour. Changes take effect on the next
command.

## Format Placeholders

` + "`answer_user.txt`" + ` uses Go fmt placeholders:
- first ` + "`%s`" + ` - the question
- second ` + "`%s`" + ` - the retrieved passages

Ensure customised prompts maintain placeholders in the correct positions.
` + "`answer_system.txt`" + ` takes no placeholders.
`
	return os.WriteFile(path, []byte(content), 0600)
}
