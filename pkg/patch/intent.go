/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package patch

import (
	"fmt"
	"strings"
)

// Action names one declarative intent kind.
type Action string

const (
	ActionAddSource       Action = "add-source"
	ActionRemoveSource    Action = "remove-source"
	ActionRenamePrefix    Action = "rename-prefix"
	ActionPruneDuplicates Action = "prune-duplicates"
	ActionDisableSource   Action = "disable-source"
	ActionEnableSource    Action = "enable-source"
)

// Intent is one declarative patch request. Targets are always addressed by
// their human-readable name; identifiers are an internal detail of the
// engine and never part of the intent contract.
type Intent struct {
	Action  Action `yaml:"action" json:"action"`
	Target  string `yaml:"target,omitempty" json:"target,omitempty"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
	Matcher string `yaml:"matcher,omitempty" json:"matcher,omitempty"`
	Old     string `yaml:"old,omitempty" json:"old,omitempty"`
	New     string `yaml:"new,omitempty" json:"new,omitempty"`
}

// String renders the intent in the CLI expression form.
func (i Intent) String() string {
	switch i.Action {
	case ActionAddSource:
		return fmt.Sprintf("add:%s:%s", i.Target, i.Path)
	case ActionRemoveSource:
		return fmt.Sprintf("remove:%s:%s", i.Target, i.Matcher)
	case ActionRenamePrefix:
		return fmt.Sprintf("rename-prefix:%s:%s", i.Old, i.New)
	case ActionPruneDuplicates:
		return fmt.Sprintf("dedupe:%s", i.Target)
	case ActionDisableSource:
		return fmt.Sprintf("disable:%s:%s", i.Target, i.Matcher)
	case ActionEnableSource:
		return fmt.Sprintf("enable:%s:%s", i.Target, i.Matcher)
	default:
		return string(i.Action)
	}
}

// Validate checks that the intent carries the fields its action requires.
func (i Intent) Validate() error {
	need := func(field, val string) error {
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("intent %s requires %s", i.Action, field)
		}
		return nil
	}
	switch i.Action {
	case ActionAddSource:
		if err := need("target", i.Target); err != nil {
			return err
		}
		return need("path", i.Path)
	case ActionRemoveSource, ActionDisableSource, ActionEnableSource:
		if err := need("target", i.Target); err != nil {
			return err
		}
		return need("matcher", i.Matcher)
	case ActionRenamePrefix:
		if err := need("old", i.Old); err != nil {
			return err
		}
		return need("new", i.New)
	case ActionPruneDuplicates:
		return need("target", i.Target)
	default:
		return fmt.Errorf("unknown intent action %q", i.Action)
	}
}

// ParseIntent parses a CLI intent expression of the form
// verb:arg[:arg]. The final argument absorbs any remaining separators so
// paths containing colons survive.
func ParseIntent(expr string) (Intent, error) {
	verb, rest, _ := strings.Cut(expr, ":")
	var intent Intent
	switch verb {
	case "add":
		target, p, ok := strings.Cut(rest, ":")
		if !ok {
			return Intent{}, fmt.Errorf("intent %q: want add:<target>:<path>", expr)
		}
		intent = Intent{Action: ActionAddSource, Target: target, Path: p}
	case "remove":
		target, m, ok := strings.Cut(rest, ":")
		if !ok {
			return Intent{}, fmt.Errorf("intent %q: want remove:<target>:<matcher>", expr)
		}
		intent = Intent{Action: ActionRemoveSource, Target: target, Matcher: m}
	case "rename-prefix":
		oldPrefix, newPrefix, ok := strings.Cut(rest, ":")
		if !ok {
			return Intent{}, fmt.Errorf("intent %q: want rename-prefix:<old>:<new>", expr)
		}
		intent = Intent{Action: ActionRenamePrefix, Old: oldPrefix, New: newPrefix}
	case "dedupe":
		intent = Intent{Action: ActionPruneDuplicates, Target: rest}
	case "disable":
		target, m, ok := strings.Cut(rest, ":")
		if !ok {
			return Intent{}, fmt.Errorf("intent %q: want disable:<target>:<matcher>", expr)
		}
		intent = Intent{Action: ActionDisableSource, Target: target, Matcher: m}
	case "enable":
		target, m, ok := strings.Cut(rest, ":")
		if !ok {
			return Intent{}, fmt.Errorf("intent %q: want enable:<target>:<matcher>", expr)
		}
		intent = Intent{Action: ActionEnableSource, Target: target, Matcher: m}
	default:
		return Intent{}, fmt.Errorf("unknown intent verb %q", verb)
	}
	if err := intent.Validate(); err != nil {
		return Intent{}, err
	}
	return intent, nil
}
