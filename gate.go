package fluentmig

import (
	"fmt"
	"strings"
)

// ConditionalExpr restricts a group of wrapped expressions to a set of
// dialects. An empty applicability set means the group is unconditional.
// The decision is made per run by comparing against the target dialect; a
// non-matching gate renders nothing and is reported as skipped.
type ConditionalExpr struct {
	Applicable []DialectTag
	Wrapped    []Expression
}

func (e *ConditionalExpr) Kind() ExpressionKind { return KindConditional }

func (e *ConditionalExpr) String() string {
	tags := make([]string, len(e.Applicable))
	for i, t := range e.Applicable {
		tags[i] = string(t)
	}
	return fmt.Sprintf("IfDatabase(%s): %d expressions", strings.Join(tags, ", "), len(e.Wrapped))
}

// AppliesTo reports whether the gate is active under the given dialect.
func (e *ConditionalExpr) AppliesTo(tag DialectTag) bool {
	if len(e.Applicable) == 0 {
		return true
	}
	for _, t := range e.Applicable {
		if t == tag {
			return true
		}
	}
	return false
}

func (e *ConditionalExpr) validate() error {
	for _, t := range e.Applicable {
		if !t.valid() {
			return &InvalidDefinitionError{
				Subject: "IfDatabase",
				Reason:  fmt.Sprintf("unknown dialect tag %q", string(t)),
			}
		}
	}
	for _, w := range e.Wrapped {
		if w.Kind() == KindConditional {
			return &InvalidDefinitionError{Subject: "IfDatabase", Reason: "conditional gates do not nest"}
		}
		if err := w.validate(); err != nil {
			return err
		}
	}
	return nil
}
