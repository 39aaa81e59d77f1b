package db

import "github.com/vanishedwanderer/grabbler/src/oops"

// Number is the set of types accepted as ids by CreateByIDHandle.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

/*
Param is a parameter value that knows whether it has been set. Use it for the
fields of parameter structs so a populate function that forgets a field fails
loudly instead of binding a zero value:

	type UserParams struct {
		Name db.Param[string]
		Age  db.Param[int]
	}
*/
type Param[T any] struct {
	value T
	set   bool
}

func (p *Param[T]) Set(v T) {
	p.value = v
	p.set = true
}

func (p *Param[T]) Unset() {
	var zero T
	p.value = zero
	p.set = false
}

func (p Param[T]) IsSet() bool {
	return p.set
}

// Get returns the value, or ErrUninitializedParameter naming the parameter if
// it was never set.
func (p Param[T]) Get(name string) (T, error) {
	if !p.set {
		var zero T
		return zero, oops.New(ErrUninitializedParameter, "parameter %q was read before being set", name)
	}
	return p.value, nil
}

// BindParam binds p at index, failing if it was not set.
func BindParam[T any](b Binder, index int, name string, p Param[T]) error {
	v, err := p.Get(name)
	if err != nil {
		return err
	}
	return b.Bind(index, v)
}

// ByIDParameters are the parameters of handles created by CreateByIDHandle.
type ByIDParameters[ID Number] struct {
	ID Param[ID]
}

func newByIDParameters[ID Number]() ByIDParameters[ID] {
	return ByIDParameters[ID]{}
}

// The id is bound as is. If its Go type does not match the column type, the
// database reports that when the statement runs.
func applyByIDParameters[ID Number](params *ByIDParameters[ID], b Binder) error {
	return BindParam(b, 1, "id", params.ID)
}
