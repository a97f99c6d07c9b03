package expr

// SimplifyBasic performs cheap structural simplifications on e: empty
// lists and concatenations collapse to null, adjacent literals merge,
// single-item concatenations unwrap and references to simple values are
// inlined. Boolean expressions are kept as they are; use [Simplify] to
// fold those too.
func SimplifyBasic(e Expr) (Expr, error) {
	return basicRewriter().Rewrite(e)
}

// Simplify performs all simplifications of [SimplifyBasic] and
// additionally evaluates boolean expressions and conditionals whose
// outcome is already determined. Unlike full constant evaluation it
// leaves undeterminable subexpressions alone, so it can be applied to
// any expression at any time.
func Simplify(e Expr) (Expr, error) {
	r := &Rewriter{}
	r.Concat = func(e *Concat) (Expr, error) { return simplifyConcat(r, e) }
	r.Reference = func(e *Reference) (Expr, error) { return inlineReference(r, e) }
	r.Bool = func(e *Bool) (Expr, error) {
		res, err := simplifyBool(r, e)
		if err != nil {
			return nil, err
		}
		if b, ok := res.(*Bool); ok {
			return foldBool(b)
		}

		return res, nil
	}
	r.If = func(e *If) (Expr, error) {
		res, err := simplifyIf(r, e)
		if err != nil {
			return nil, err
		}
		if cond, ok := res.(*If); ok {
			return foldIf(cond)
		}

		return res, nil
	}

	return r.Rewrite(e)
}

func basicRewriter() *Rewriter {
	r := &Rewriter{}
	r.Concat = func(e *Concat) (Expr, error) { return simplifyConcat(r, e) }
	r.Reference = func(e *Reference) (Expr, error) { return inlineReference(r, e) }
	r.Bool = func(e *Bool) (Expr, error) { return simplifyBool(r, e) }
	r.If = func(e *If) (Expr, error) { return simplifyIf(r, e) }

	return r
}

func simplifyConcat(r *Rewriter, e *Concat) (Expr, error) {
	items, changed, err := r.sequence(e.Items)
	if err != nil {
		return nil, err
	}
	if !changed {
		return e, nil
	}
	if len(items) == 0 {
		return NewNull(e.Position()), nil
	}

	merged := make([]Expr, 0, len(items))
	for _, item := range items {
		lit, ok := item.(*Literal)
		if ok && len(merged) > 0 {
			if prev, ok := merged[len(merged)-1].(*Literal); ok {
				merged[len(merged)-1] = NewLiteral(prev.Value+lit.Value, prev.Position())
				continue
			}
		}
		merged = append(merged, item)
	}

	if len(merged) == 1 {
		return merged[0], nil
	}

	return NewConcat(merged, e.Position()), nil
}

// inlineReference substitutes references whose value is trivial. More
// aggressive inlining would lose the variable structure that makes
// generated makefiles overridable.
func inlineReference(r *Rewriter, e *Reference) (Expr, error) {
	value, err := e.Value()
	if err != nil {
		return nil, err
	}
	switch value.(type) {
	case *Literal, *Reference, *BoolValue:
		return r.Rewrite(value)
	}

	return e, nil
}

func simplifyBool(r *Rewriter, e *Bool) (Expr, error) {
	rewritten, err := r.Descend(e)
	if err != nil {
		return nil, err
	}
	b, ok := rewritten.(*Bool)
	if !ok || b == e {
		return rewritten, nil
	}

	_, leftNull := b.Left.(*Null)
	rightNull := b.Right == nil
	if !rightNull {
		_, rightNull = b.Right.(*Null)
	}
	if leftNull && rightNull {
		return NewNull(b.Position()), nil
	}

	return b, nil
}

func simplifyIf(r *Rewriter, e *If) (Expr, error) {
	rewritten, err := r.Descend(e)
	if err != nil {
		return nil, err
	}
	cond, ok := rewritten.(*If)
	if !ok || cond == e {
		return rewritten, nil
	}

	if _, yesNull := cond.Then.(*Null); yesNull {
		if _, noNull := cond.Else.(*Null); noNull {
			return NewNull(cond.Position()), nil
		}
	}

	return cond, nil
}

// foldBool evaluates as much of a boolean expression as the constant
// parts of its operands allow. Operands that evaluate to null stay
// symbolic since a later pass may still assign them a value.
func foldBool(e *Bool) (Expr, error) {
	switch e.Op {
	case OpNot:
		v, err := AsConst(e.Left)
		if err != nil {
			return keepIfNonConst(e, err)
		}

		return NewBoolValue(!constTruthy(v), e.Position()), nil

	case OpAnd:
		lv, lerr := AsConst(e.Left)
		if lerr != nil && !IsNonConst(lerr) {
			return nil, lerr
		}
		rv, rerr := AsConst(e.Right)
		if rerr != nil && !IsNonConst(rerr) {
			return nil, rerr
		}
		lKnown := lerr == nil && !lv.IsNull()
		rKnown := rerr == nil && !rv.IsNull()
		switch {
		case lKnown && rKnown:
			return NewBoolValue(constTruthy(lv) && constTruthy(rv), e.Position()), nil
		case lKnown && constTruthy(lv):
			return e.Right, nil
		case rKnown && constTruthy(rv):
			return e.Left, nil
		}

		return e, nil

	case OpOr:
		lv, lerr := AsConst(e.Left)
		if lerr != nil && !IsNonConst(lerr) {
			return nil, lerr
		}
		if lerr == nil && constTruthy(lv) {
			return NewBoolValue(true, e.Position()), nil
		}
		rv, rerr := AsConst(e.Right)
		if rerr != nil && !IsNonConst(rerr) {
			return nil, rerr
		}
		if rerr == nil && constTruthy(rv) {
			return NewBoolValue(true, e.Position()), nil
		}
		if lerr == nil && rerr == nil && !lv.IsNull() && !rv.IsNull() {
			return NewBoolValue(false, e.Position()), nil
		}

		return e, nil

	case OpEqual, OpNotEqual:
		lv, lerr := AsConst(e.Left)
		if lerr != nil {
			return keepIfNonConst(e, lerr)
		}
		rv, rerr := AsConst(e.Right)
		if rerr != nil {
			return keepIfNonConst(e, rerr)
		}
		eq := lv.RawEquals(rv)
		if e.Op == OpNotEqual {
			eq = !eq
		}

		return NewBoolValue(eq, e.Position()), nil
	}

	return e, nil
}

func foldIf(e *If) (Expr, error) {
	v, err := AsConst(e.Cond)
	if err != nil {
		return keepIfNonConst(e, err)
	}
	if constTruthy(v) {
		return e.Then, nil
	}

	return e.Else, nil
}

func keepIfNonConst(e Expr, err error) (Expr, error) {
	if IsNonConst(err) {
		return e, nil
	}

	return nil, err
}
