package expr

import (
	"fmt"
	"strings"
)

// CondStack tracks the currently active condition while walking nested
// conditional statements. Pushed conditions accumulate: each new one is
// combined with the enclosing ones using "&&".
type CondStack struct {
	stack []Expr
}

// Active returns the condition currently in effect, or nil when
// execution is unconditional.
func (s *CondStack) Active() Expr {
	if len(s.stack) == 0 {
		return nil
	}

	return s.stack[len(s.stack)-1]
}

// Push makes cond active, combined with any enclosing condition.
func (s *CondStack) Push(cond Expr) {
	if active := s.Active(); active != nil {
		cond = NewBool(OpAnd, active, cond, cond.Position())
	}
	s.stack = append(s.stack, cond)
}

// Pop deactivates the most recently pushed condition.
func (s *CondStack) Pop() {
	s.stack = s.stack[:len(s.stack)-1]
}

// Reset clears the stack and returns its previous content for a later
// Restore. Used when entering statements that must not inherit the
// enclosing conditions, such as replayed configuration definitions.
func (s *CondStack) Reset() []Expr {
	prev := s.stack
	s.stack = nil

	return prev
}

// Restore reinstates a stack previously returned by Reset.
func (s *CondStack) Restore(stack []Expr) {
	s.stack = stack
}

// CondValue is one possible value of an expression together with the
// condition under which the expression takes it. A nil Cond means the
// value applies unconditionally.
type CondValue struct {
	Cond  Expr
	Value Expr
}

// PossibleValues enumerates all the values e may take, each with its
// condition. Items of a list are enumerated individually and null
// values are skipped. A non-nil globalCond is combined into every
// returned condition.
//
// References are followed only when needed: a reference to a value that
// enumerates to itself is kept unexpanded, preserving the variable
// structure of the input.
func PossibleValues(e, globalCond Expr) ([]CondValue, error) {
	v := &valueEnum{}
	if globalCond != nil {
		v.conds.Push(globalCond)
	}

	return v.visit(e)
}

type valueEnum struct {
	conds CondStack

	// insideValue is non-zero while enumerating the children of a
	// composite value, where lists no longer flatten.
	insideValue int
}

func (p *valueEnum) visit(e Expr) ([]CondValue, error) {
	switch t := e.(type) {
	case *Null:
		return nil, nil

	case *Literal, *BoolValue, *Placeholder:
		return []CondValue{{p.conds.Active(), e}}, nil

	case *Reference:
		keep, err := keepUnexpanded(t)
		if err != nil {
			return nil, err
		}
		if keep {
			return []CondValue{{p.conds.Active(), e}}, nil
		}
		value, err := t.Value()
		if err != nil {
			return nil, err
		}

		return p.visit(value)

	case *If:
		p.conds.Push(t.Cond)
		yes, err := p.visit(t.Then)
		p.conds.Pop()
		if err != nil {
			return nil, err
		}

		p.conds.Push(NewNot(t.Cond, t.Cond.Position()))
		no, err := p.visit(t.Else)
		p.conds.Pop()
		if err != nil {
			return nil, err
		}

		return append(yes, no...), nil

	case *Concat:
		return p.product(t.Items, func(chosen []Expr) Expr {
			return NewConcat(chosen, t.Position())
		})

	case *Path:
		return p.product(t.Components, func(chosen []Expr) Expr {
			return NewPath(chosen, t.Anchor, t.AnchorFile, t.Position())
		})

	case *List:
		if p.insideValue > 0 {
			return p.product(t.Items, func(chosen []Expr) Expr {
				return NewList(chosen, t.Position())
			})
		}
		var out []CondValue
		for _, item := range t.Items {
			vals, err := p.visit(item)
			if err != nil {
				return nil, err
			}
			out = append(out, vals...)
		}

		return out, nil
	}

	panic(fmt.Sprintf("cannot enumerate values of %T expression", e))
}

// product enumerates a composite node by taking the cartesian product
// of its children's possible values.
func (p *valueEnum) product(children []Expr, build func([]Expr) Expr) ([]CondValue, error) {
	p.insideValue++
	defer func() { p.insideValue-- }()

	alternatives := make([][]CondValue, 0, len(children))
	for _, child := range children {
		vals, err := p.visit(child)
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 {
			continue
		}
		alternatives = append(alternatives, vals)
	}
	if len(alternatives) == 0 {
		return nil, nil
	}

	var out []CondValue
	chosen := make([]CondValue, len(alternatives))
	var iterate func(idx int)
	iterate = func(idx int) {
		if idx == len(alternatives) {
			values := make([]Expr, len(chosen))
			for i, cv := range chosen {
				values[i] = cv.Value
			}
			out = append(out, CondValue{p.combinedCond(chosen), build(values)})

			return
		}
		for _, cv := range alternatives[idx] {
			chosen[idx] = cv
			iterate(idx + 1)
		}
	}
	iterate(0)

	return out, nil
}

// combinedCond joins the conditions of the chosen child values with the
// active condition, keeping each distinct condition once.
func (p *valueEnum) combinedCond(chosen []CondValue) Expr {
	var conds []Expr
	seen := make(map[Expr]bool)
	for _, cv := range chosen {
		if cv.Cond == nil || seen[cv.Cond] {
			continue
		}
		seen[cv.Cond] = true
		conds = append(conds, cv.Cond)
	}
	if len(conds) == 0 {
		return p.conds.Active()
	}

	combined := conds[0]
	for _, c := range conds[1:] {
		combined = NewBool(OpAnd, combined, c, combined.Position())
	}
	p.conds.Push(combined)
	defer p.conds.Pop()

	return p.conds.Active()
}

// keepUnexpanded decides whether a reference can stay unexpanded during
// value enumeration. It can when its value enumerates to exactly the
// value itself.
func keepUnexpanded(e Expr) (bool, error) {
	switch t := e.(type) {
	case *Null, *Literal, *BoolValue, *Bool:
		return true, nil

	case *List, *Placeholder, *If:
		return false, nil

	case *Concat:
		return allKeepUnexpanded(t.Items)

	case *Path:
		return allKeepUnexpanded(t.Components)

	case *Reference:
		value, err := t.Value()
		if err != nil {
			return false, err
		}

		return keepUnexpanded(value)
	}

	panic(fmt.Sprintf("unhandled expression type %T", e))
}

func allKeepUnexpanded(items []Expr) (bool, error) {
	for _, item := range items {
		ok, err := keepUnexpanded(item)
		if err != nil || !ok {
			return ok, err
		}
	}

	return true, nil
}

// SplitIntoPath splits e on "/" separators and returns the resulting
// path expression. Conditional expressions and variable references are
// understood; a path embedded in the expression provides the anchor.
func SplitIntoPath(e Expr) (*Path, error) {
	s := &pathSplitter{anchor: AnchorSrcdir, anchorFile: e.Position().File}
	components, err := s.visit(e)
	if err != nil {
		return nil, WithPos(err, e.Position())
	}

	filtered := make([]Expr, 0, len(components))
	for _, c := range components {
		if lit, ok := c.(*Literal); ok && lit.Value == "" {
			continue
		}
		filtered = append(filtered, c)
	}

	return NewPath(filtered, s.anchor, s.anchorFile, e.Position()), nil
}

type pathSplitter struct {
	anchor     Anchor
	anchorFile string
	anchorSet  bool
}

func (s *pathSplitter) visit(e Expr) ([]Expr, error) {
	switch t := e.(type) {
	case *Null, *BoolValue, *Bool, *Placeholder:
		return []Expr{e}, nil

	case *Literal:
		if strings.ContainsRune(t.Value, '\\') {
			Warn(WarnPathSeparator, t.Position(),
				`"\" is not a path separator, use "/"`)
		}
		parts := strings.Split(t.Value, "/")
		if len(parts) == 1 {
			return []Expr{e}, nil
		}
		out := make([]Expr, len(parts))
		for i, part := range parts {
			out[i] = NewLiteral(part, t.Position())
		}

		return out, nil

	case *List:
		return nil, Errorf(t.Position(), "a list is not a valid path")

	case *Path:
		if s.anchorSet {
			return nil, Errorf(t.Position(), "cannot embed a path in another path")
		}
		s.anchor, s.anchorFile, s.anchorSet = t.Anchor, t.AnchorFile, true

		return t.Components, nil

	case *Reference:
		hadAnchor := s.anchorSet
		value, err := t.Value()
		if err != nil {
			return nil, err
		}
		vals, err := s.visit(value)
		if err != nil {
			return nil, err
		}
		// A reference to a whole path is substituted; a reference that
		// splits into a single component stays unexpanded.
		if len(vals) == 1 && s.anchorSet == hadAnchor {
			return []Expr{t}, nil
		}

		return vals, nil

	case *Concat:
		var out []Expr
		for _, item := range t.Items {
			vals, err := s.visit(item)
			if err != nil {
				return nil, err
			}
			if len(out) == 0 {
				out = vals
				continue
			}
			// The last fragment before the boundary and the first one
			// after it belong to the same component.
			out = joinAtBoundary(out, vals, t.Position())
		}

		return out, nil

	case *If:
		yes, err := s.visit(t.Then)
		if err != nil {
			return nil, err
		}
		no, err := s.visit(t.Else)
		if err != nil {
			return nil, err
		}
		if len(yes) == 1 && len(no) == 1 {
			return []Expr{e}, nil
		}
		if len(yes) != len(no) {
			return nil, Errorf(t.Position(),
				"cannot split conditional value %q into path components, the branches have different lengths", t)
		}
		out := make([]Expr, len(yes))
		for i := range yes {
			out[i] = NewIf(t.Cond, yes[i], no[i], t.Position())
		}

		return out, nil
	}

	panic(fmt.Sprintf("unhandled expression type %T", e))
}

func joinAtBoundary(left, right []Expr, pos Pos) []Expr {
	last := left[len(left)-1]
	first := right[0]

	var middle []Expr
	if lit, ok := last.(*Literal); !ok || lit.Value != "" {
		middle = append(middle, last)
	}
	if lit, ok := first.(*Literal); !ok || lit.Value != "" {
		middle = append(middle, first)
	}
	if len(middle) > 1 {
		middle = []Expr{NewConcat(middle, pos)}
	}

	out := make([]Expr, 0, len(left)+len(right))
	out = append(out, left[:len(left)-1]...)
	out = append(out, middle...)
	out = append(out, right[1:]...)

	return out
}

// NameFromPath derives an identifier from a path expression, for
// naming model items such as source files after their file name.
func NameFromPath(e Expr) (string, error) {
	switch t := e.(type) {
	case *Literal:
		return t.Value, nil

	case *Concat:
		var b strings.Builder
		for _, item := range t.Items {
			s, err := NameFromPath(item)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		}

		return b.String(), nil

	case *Path:
		comps := make([]string, len(t.Components))
		for i, c := range t.Components {
			s, err := NameFromPath(c)
			if err != nil {
				return "", err
			}
			comps[i] = s
		}
		joined := strings.Join(comps, "/")
		if t.Anchor == AnchorSrcdir {
			return joined, nil
		}

		return string(t.Anchor) + "/" + joined, nil

	case *Reference:
		value, err := t.Value()
		if err != nil {
			return "", err
		}

		return NameFromPath(value)

	case *If:
		value, err := t.Value()
		if err != nil {
			return "", err
		}

		return NameFromPath(value)
	}

	return "", Errorf(e.Position(), "cannot derive a name from %q", e)
}

// AddPrefix prepends prefix to e or, when e is a list, to each of its
// items. Null values stay untouched.
func AddPrefix(prefix, e Expr) (Expr, error) {
	if list, ok := e.(*List); ok {
		items := make([]Expr, len(list.Items))
		for i, item := range list.Items {
			prefixed, err := AddPrefix(prefix, item)
			if err != nil {
				return nil, err
			}
			items[i] = prefixed
		}

		return NewList(items, list.Position()), nil
	}

	switch t := e.(type) {
	case *Null:
		return e, nil

	case *Literal, *Placeholder, *Path, *BoolValue:
		return NewConcat([]Expr{prefix, e}, e.Position()), nil

	case *Concat:
		return NewConcat(append([]Expr{prefix}, t.Items...), t.Position()), nil

	case *Reference:
		value, err := t.Value()
		if err != nil {
			return nil, err
		}

		return AddPrefix(prefix, value)

	case *If:
		yes, err := AddPrefix(prefix, t.Then)
		if err != nil {
			return nil, err
		}
		no, err := AddPrefix(prefix, t.Else)
		if err != nil {
			return nil, err
		}

		return NewIf(t.Cond, yes, no, t.Position()), nil
	}

	return nil, Errorf(e.Position(), "cannot prepend a prefix to %q", e)
}

// FormatString substitutes %(name) references in the literal parts of
// format with the corresponding expressions from values. It is used for
// custom compilation commands, where %(in) and %(out) stand for the
// files being processed.
func FormatString(format Expr, values map[string]Expr) (Expr, error) {
	r := &Rewriter{}
	r.Literal = func(e *Literal) (Expr, error) {
		if !strings.Contains(e.Value, "%(") {
			return e, nil
		}

		var out []Expr
		rest := e.Value
		for {
			start := strings.Index(rest, "%(")
			if start < 0 {
				break
			}
			end := strings.Index(rest[start:], ")")
			if end < 0 {
				break
			}
			if start > 0 {
				out = append(out, NewLiteral(rest[:start], e.Position()))
			}
			name := rest[start+2 : start+end]
			repl, ok := values[name]
			if !ok {
				return nil, Errorf(e.Position(),
					"unknown substitution key %q in format string", name)
			}
			out = append(out, repl)
			rest = rest[start+end+1:]
		}
		if rest != "" {
			out = append(out, NewLiteral(rest, e.Position()))
		}
		if len(out) == 0 {
			return NewLiteral("", e.Position()), nil
		}
		if len(out) == 1 {
			return out[0], nil
		}

		return NewConcat(out, e.Position()), nil
	}

	return r.Rewrite(format)
}
