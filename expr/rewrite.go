package expr

// Walk traverses the expression tree rooted at e in depth-first
// pre-order, calling visit for every node. When visit returns false the
// node's children are skipped. Variable references are not followed;
// use a [Rewriter] with a Reference hook when referenced values matter.
func Walk(e Expr, visit func(Expr) bool) {
	if e == nil || !visit(e) {
		return
	}

	switch t := e.(type) {
	case *List:
		for _, item := range t.Items {
			Walk(item, visit)
		}

	case *Concat:
		for _, item := range t.Items {
			Walk(item, visit)
		}

	case *Path:
		for _, c := range t.Components {
			Walk(c, visit)
		}

	case *Bool:
		Walk(t.Left, visit)
		if t.Right != nil {
			Walk(t.Right, visit)
		}

	case *If:
		Walk(t.Cond, visit)
		Walk(t.Then, visit)
		Walk(t.Else, visit)
	}
}

// A Rewriter transforms an expression tree bottom-up. Each hook, when
// set, replaces the default handling of the corresponding node type; a
// hook that wants the default child traversal as well calls
// [Rewriter.Descend] itself.
//
// Nodes are treated as immutable: rewriting builds new nodes and
// returns the original ones unchanged where no child changed, so
// unmodified subtrees keep their identity.
type Rewriter struct {
	Null        func(e *Null) (Expr, error)
	Literal     func(e *Literal) (Expr, error)
	BoolValue   func(e *BoolValue) (Expr, error)
	List        func(e *List) (Expr, error)
	Concat      func(e *Concat) (Expr, error)
	Reference   func(e *Reference) (Expr, error)
	Placeholder func(e *Placeholder) (Expr, error)
	Path        func(e *Path) (Expr, error)
	Bool        func(e *Bool) (Expr, error)
	If          func(e *If) (Expr, error)
}

// Rewrite applies the rewriter to e and returns the transformed
// expression.
func (r *Rewriter) Rewrite(e Expr) (Expr, error) {
	switch t := e.(type) {
	case *Null:
		if r.Null != nil {
			return r.Null(t)
		}
		return e, nil

	case *Literal:
		if r.Literal != nil {
			return r.Literal(t)
		}
		return e, nil

	case *BoolValue:
		if r.BoolValue != nil {
			return r.BoolValue(t)
		}
		return e, nil

	case *Reference:
		if r.Reference != nil {
			return r.Reference(t)
		}
		return e, nil

	case *Placeholder:
		if r.Placeholder != nil {
			return r.Placeholder(t)
		}
		return e, nil

	case *List:
		if r.List != nil {
			return r.List(t)
		}

	case *Concat:
		if r.Concat != nil {
			return r.Concat(t)
		}

	case *Path:
		if r.Path != nil {
			return r.Path(t)
		}

	case *Bool:
		if r.Bool != nil {
			return r.Bool(t)
		}

	case *If:
		if r.If != nil {
			return r.If(t)
		}
	}

	return r.Descend(e)
}

// Descend rewrites the children of e and rebuilds it when any of them
// changed. Children rewritten to null are dropped from lists,
// concatenations and paths; a node emptied this way becomes null
// itself.
func (r *Rewriter) Descend(e Expr) (Expr, error) {
	switch t := e.(type) {
	case *List:
		items, changed, err := r.sequence(t.Items)
		if err != nil {
			return nil, err
		}
		if !changed {
			return t, nil
		}
		if len(items) == 0 {
			return NewNull(t.Position()), nil
		}

		return NewList(items, t.Position()), nil

	case *Concat:
		items, changed, err := r.sequence(t.Items)
		if err != nil {
			return nil, err
		}
		if !changed {
			return t, nil
		}
		if len(items) == 0 {
			return NewNull(t.Position()), nil
		}

		return NewConcat(items, t.Position()), nil

	case *Path:
		comps, changed, err := r.sequence(t.Components)
		if err != nil {
			return nil, err
		}
		if !changed {
			return t, nil
		}
		if len(comps) == 0 {
			return NewNull(t.Position()), nil
		}

		return NewPath(comps, t.Anchor, t.AnchorFile, t.Position()), nil

	case *Bool:
		left, err := r.Rewrite(t.Left)
		if err != nil {
			return nil, err
		}
		var right Expr
		if t.Right != nil {
			right, err = r.Rewrite(t.Right)
			if err != nil {
				return nil, err
			}
		}
		if left == t.Left && right == t.Right {
			return t, nil
		}

		return NewBool(t.Op, left, right, t.Position()), nil

	case *If:
		cond, err := r.Rewrite(t.Cond)
		if err != nil {
			return nil, err
		}
		yes, err := r.Rewrite(t.Then)
		if err != nil {
			return nil, err
		}
		no, err := r.Rewrite(t.Else)
		if err != nil {
			return nil, err
		}
		if cond == t.Cond && yes == t.Then && no == t.Else {
			return t, nil
		}

		return NewIf(cond, yes, no, t.Position()), nil
	}

	return e, nil
}

// sequence rewrites a slice of child expressions, dropping any that
// became null. The original slice is returned when nothing changed.
func (r *Rewriter) sequence(items []Expr) ([]Expr, bool, error) {
	out := make([]Expr, 0, len(items))
	changed := false
	for _, item := range items {
		rewritten, err := r.Rewrite(item)
		if err != nil {
			return nil, false, err
		}
		if rewritten != item {
			changed = true
		}
		if _, isNull := rewritten.(*Null); isNull {
			changed = true
			continue
		}
		out = append(out, rewritten)
	}
	if !changed {
		return items, false, nil
	}

	return out, true, nil
}
