// Package jsonp evaluates JSONP response bodies.
//
// A JSONP endpoint answers a poll with a script that calls a named callback,
// for example:
//
//	Vixen.callbacks.vixen_123({"data": "hello"});
//
// [Evaluate] runs such a script in a fresh goja runtime where the callback
// reference is bound to a Go function, so the response reaches the poller
// that issued the request without any globally addressable callback table.
package jsonp

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// ErrEvaluation wraps every failure raised while running a response script.
var ErrEvaluation = errors.New("jsonp evaluation failed")

// ErrInvalidReference is returned for callback references that are not a
// dotted path of JavaScript identifiers.
var ErrInvalidReference = errors.New("invalid callback reference")

var referencePattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

// ValidReference reports whether ref is a dotted JavaScript identifier path
// such as "Vixen.callbacks.vixen_123".
func ValidReference(ref string) bool {
	return referencePattern.MatchString(ref)
}

// Reference builds the callback reference for id under namespace.
func Reference(namespace, id string) string {
	return namespace + ".callbacks." + id
}

// Evaluate runs src with ref bound to deliver.
//
// Each argument the script passes to the callback is exported to its Go
// representation before deliver is called. A positive timeout interrupts
// scripts that run too long. Panics raised by deliver are not recovered.
func Evaluate(src []byte, ref string, deliver func(args ...any), timeout time.Duration) error {
	if !ValidReference(ref) {
		return fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}

	rt := goja.New()
	if err := bind(rt, ref, deliver); err != nil {
		return fmt.Errorf("%w: bind %s: %w", ErrEvaluation, ref, err)
	}

	if timeout > 0 {
		timer := time.AfterFunc(timeout, func() {
			rt.Interrupt(fmt.Sprintf("script exceeded %s", timeout))
		})
		defer timer.Stop()
	}

	if _, err := rt.RunString(string(src)); err != nil {
		return fmt.Errorf("%w: %w", ErrEvaluation, err)
	}
	return nil
}

// bind creates the objects along ref and installs deliver at its leaf.
func bind(rt *goja.Runtime, ref string, deliver func(args ...any)) error {
	parts := strings.Split(ref, ".")
	obj := rt.GlobalObject()

	for _, name := range parts[:len(parts)-1] {
		child := rt.NewObject()
		if err := obj.Set(name, child); err != nil {
			return err
		}
		obj = child
	}

	return obj.Set(parts[len(parts)-1], func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.Export()
		}
		if deliver != nil {
			deliver(args...)
		}
		return goja.Undefined()
	})
}
