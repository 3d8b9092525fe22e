// Package playbook holds the fixed catalog of browser task recipes and the
// interpreter that executes them step by step against a live page.
package playbook

import (
	"context"
	"errors"
)

var (
	// ErrNoPlaybook signals that no catalog entry matches the proposal intent.
	ErrNoPlaybook = errors.New("playbook: no matching playbook")
	// ErrStepFailed signals that a playbook instruction could not complete.
	ErrStepFailed = errors.New("playbook: step failed")
)

// Op identifies one primitive browser action. The vocabulary is intentionally
// small; "ask" and "act" are the only places free-form task intent enters
// automation.
type Op string

const (
	OpNavigate Op = "navigate"
	OpClick    Op = "click"
	OpFill     Op = "fill"
	OpWait     Op = "wait"
	OpRead     Op = "read"
	OpAsk      Op = "ask"
	OpAct      Op = "act"
)

// Step is one instruction of a playbook. Target carries the URL (navigate)
// or CSS selector (click, fill, read); Value carries the fill text, wait
// duration, or natural-language question/instruction. Both may reference
// `{{var}}` placeholders resolved at run time. Into names the variable that
// receives the output of read and ask steps.
type Step struct {
	Op          Op
	Target      string
	Value       string
	Into        string
	OCRFallback bool
}

// Playbook is a named, immutable sequence of steps plus the keywords used to
// match it against a proposal's title and description.
type Playbook struct {
	Name     string
	Keywords []string
	Steps    []Step
}

// Page is the minimal surface the interpreter needs from a live browser
// page. browser.Session provides the real implementation; tests use fakes.
type Page interface {
	Goto(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	Text(ctx context.Context, selector string) (string, error)
	Content(ctx context.Context) (string, error)
	ElementShot(ctx context.Context, selector string) ([]byte, error)
}

// Interactor is the page interaction capability backing the ask and act
// primitives. The real implementation delegates to an external
// language-understanding service; it is the single swappable boundary for
// free-form intent.
type Interactor interface {
	Ask(ctx context.Context, page Page, question string) (string, error)
	Act(ctx context.Context, page Page, instruction string) error
}

// Recognizer recovers text from a captured page region when structured
// inspection finds nothing.
type Recognizer interface {
	Recognize(ctx context.Context, capture []byte) (string, error)
}
