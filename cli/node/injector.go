// This file contains the implementation of a dependency injector using
// reflection.
//
// Documentation Last Review: 11.06.2026
//

package node

import (
	"reflect"

	"golang.org/x/xerrors"
)

// reflectInjector resolves dependencies by assignability: a dependency
// satisfies a request when its type can be assigned to the requested one,
// which covers both concrete types and interfaces.
//
// - implements node.Injector
type reflectInjector struct {
	deps map[reflect.Type]interface{}
}

// NewInjector returns a empty injector.
func NewInjector() Injector {
	return &reflectInjector{
		deps: make(map[reflect.Type]interface{}),
	}
}

// Resolve implements node.Injector. It fills the pointed value with the first
// compatible dependency found.
func (inj *reflectInjector) Resolve(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr {
		return xerrors.New("expect a pointer")
	}

	if !rv.Elem().IsValid() {
		return xerrors.Errorf("reflect value '%v' is invalid", rv)
	}

	for typ, value := range inj.deps {
		if typ.AssignableTo(rv.Elem().Type()) {
			rv.Elem().Set(reflect.ValueOf(value))
			return nil
		}
	}

	return xerrors.Errorf("couldn't find dependency for '%v'", rv.Elem().Type())
}

// Inject implements node.Injector. It stores the dependency under its
// concrete type, overwriting a previous one of the same type.
func (inj *reflectInjector) Inject(v interface{}) {
	key := reflect.TypeOf(v)
	inj.deps[key] = v
}
