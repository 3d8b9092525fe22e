package playbook

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var placeholderRE = regexp.MustCompile(`\{\{(\w+)\}\}`)

// amountRE matches a decimal ETH amount inside free-form proposal text,
// e.g. "Donate 0.0001 ETH to the water project".
var amountRE = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*ETH`)

// ExtractAmount pulls the first ETH-denominated amount out of proposal text.
func ExtractAmount(text string) (string, bool) {
	m := amountRE.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Interpreter executes one playbook strictly sequentially against a page.
// It performs no retries: the first failing step aborts the run.
type Interpreter struct {
	interact  Interactor
	recognize Recognizer
}

// NewInterpreter creates an interpreter with the given ask/act capability
// and OCR fallback.
func NewInterpreter(interact Interactor, recognize Recognizer) *Interpreter {
	return &Interpreter{interact: interact, recognize: recognize}
}

// Run executes every step of the playbook in order, expanding `{{var}}`
// placeholders from vars and writing read/ask outputs back into vars.
// The context carries the session deadline; an expired context fails the
// current step rather than racing the force-closed browser.
func (ip *Interpreter) Run(ctx context.Context, page Page, pb Playbook, vars map[string]string) error {
	for i, step := range pb.Steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %s step %d: %v", ErrStepFailed, pb.Name, i+1, err)
		}
		if err := ip.runStep(ctx, page, step, vars); err != nil {
			return fmt.Errorf("%w: %s step %d (%s): %v", ErrStepFailed, pb.Name, i+1, step.Op, err)
		}
	}
	return nil
}

func (ip *Interpreter) runStep(ctx context.Context, page Page, step Step, vars map[string]string) error {
	target := expand(step.Target, vars)
	value := expand(step.Value, vars)

	switch step.Op {
	case OpNavigate:
		return page.Goto(ctx, target)

	case OpClick:
		return page.Click(ctx, target)

	case OpFill:
		return page.Fill(ctx, target, value)

	case OpWait:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("bad wait duration %q: %v", value, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			return nil
		}

	case OpRead:
		text, err := ip.readText(ctx, page, step, target)
		if err != nil {
			return err
		}
		vars[step.Into] = text
		return nil

	case OpAsk:
		answer, err := ip.interact.Ask(ctx, page, value)
		if err != nil {
			return err
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return fmt.Errorf("empty answer to %q", value)
		}
		vars[step.Into] = answer
		return nil

	case OpAct:
		return ip.interact.Act(ctx, page, value)

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

// readText reads structured text for the selector and, when that yields
// nothing and the step allows it, falls back to OCR over the element's
// captured region. An empty OCR result fails the step; there is no fallback
// after OCR.
func (ip *Interpreter) readText(ctx context.Context, page Page, step Step, selector string) (string, error) {
	text, err := page.Text(ctx, selector)
	text = strings.TrimSpace(text)
	if err == nil && text != "" {
		return text, nil
	}

	if !step.OCRFallback || ip.recognize == nil {
		if err != nil {
			return "", err
		}
		return "", fmt.Errorf("no text at %q", selector)
	}

	capture, shotErr := page.ElementShot(ctx, selector)
	if shotErr != nil {
		return "", fmt.Errorf("capture %q: %v", selector, shotErr)
	}

	recognized, ocrErr := ip.recognize.Recognize(ctx, capture)
	if ocrErr != nil {
		return "", fmt.Errorf("ocr at %q: %v", selector, ocrErr)
	}
	return strings.TrimSpace(recognized), nil
}

func expand(s string, vars map[string]string) string {
	return placeholderRE.ReplaceAllStringFunc(s, func(m string) string {
		key := placeholderRE.FindStringSubmatch(m)[1]
		if v, ok := vars[key]; ok {
			return v
		}
		return m
	})
}
