package db

import (
	"context"

	"github.com/vanishedwanderer/grabbler/src/oops"
)

/*
A ParametrizedHandle is a Handle whose statement has placeholders. It pairs the
handle with a factory for a parameter struct and an applicator that binds the
struct's fields to the placeholders:

	type TextParams struct {
		Text db.Param[string]
	}
	byText := db.Parametrize(handle,
		func() TextParams { return TextParams{} },
		func(p *TextParams, b db.Binder) error {
			return db.BindParam(b, 1, "text", p.Text)
		},
	)
	rows, err := byText.ExecuteWith(ctx, func(p *TextParams) {
		p.Text.Set("hi")
	})

Every ExecuteWith starts from a fresh parameter struct, so nothing set in an
earlier call can leak into a later one.
*/
type ParametrizedHandle[T, U any] struct {
	handle  *Handle[T]
	factory func() U
	apply   func(params *U, b Binder) error
}

// Parametrize wraps handle. From then on the handle itself refuses Execute and
// Iterate with ErrParametersRequired, so its statement only ever runs with
// freshly bound parameters. Closing either one closes the statement.
func Parametrize[T, U any](handle *Handle[T], factory func() U, apply func(params *U, b Binder) error) *ParametrizedHandle[T, U] {
	handle.mu.Lock()
	handle.requiresParameters = true
	handle.mu.Unlock()

	return &ParametrizedHandle[T, U]{
		handle:  handle,
		factory: factory,
		apply:   apply,
	}
}

// Execute always fails. Use ExecuteWith.
func (p *ParametrizedHandle[T, U]) Execute(ctx context.Context) ([]T, error) {
	return nil, oops.New(ErrParametersRequired, "use ExecuteWith for %q", p.handle.SQL())
}

// Iterate always fails. Use IterateWith.
func (p *ParametrizedHandle[T, U]) Iterate(ctx context.Context) (*Iterator[T], error) {
	return nil, oops.New(ErrParametersRequired, "use IterateWith for %q", p.handle.SQL())
}

// SQL returns the query text the handle was prepared with.
func (p *ParametrizedHandle[T, U]) SQL() string {
	return p.handle.SQL()
}

// Close releases the prepared statement. Closing twice is a no-op.
func (p *ParametrizedHandle[T, U]) Close(ctx context.Context) error {
	return p.handle.Close(ctx)
}

// ExecuteWith creates a fresh parameter struct, lets populate fill it in,
// binds it, and runs the query. If binding fails, nothing is executed.
func (p *ParametrizedHandle[T, U]) ExecuteWith(ctx context.Context, populate func(params *U)) ([]T, error) {
	h := p.handle
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := p.prepareParameters(populate); err != nil {
		return nil, err
	}
	return h.execute(ctx)
}

// IterateWith is the lazy variant of ExecuteWith. See Handle.Iterate.
func (p *ParametrizedHandle[T, U]) IterateWith(ctx context.Context, populate func(params *U)) (*Iterator[T], error) {
	h := p.handle
	h.mu.Lock()
	if err := p.prepareParameters(populate); err != nil {
		h.mu.Unlock()
		return nil, err
	}
	it, err := h.iterate(ctx, h.mu.Unlock)
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}
	return it, nil
}

// Must hold p.handle.mu.
func (p *ParametrizedHandle[T, U]) prepareParameters(populate func(params *U)) error {
	stmt := p.handle.stmt
	if p.handle.closed {
		return oops.New(ErrHandleClosed, "cannot execute %q", stmt.SQL())
	}
	if populate == nil {
		return oops.New(ErrParametersRequired, "no populate function given for %q", stmt.SQL())
	}

	params := p.factory()
	populate(&params)
	stmt.ClearParameters()
	return p.apply(&params, stmt)
}
