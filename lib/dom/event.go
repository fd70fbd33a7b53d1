package dom

import (
	"fmt"

	"golang.org/x/net/html"
)

// Phase is the propagation phase an event is in.
type Phase uint8

const (
	PhaseNone Phase = iota
	PhaseCapture
	PhaseTarget
	PhaseBubble
)

// Event is dispatched through a Document.
type Event struct {
	Type          string
	Target        *html.Node
	CurrentTarget *html.Node
	Phase         Phase

	stopped bool
}

// StopPropagation prevents the event from reaching further nodes. The
// remaining listeners of the current node still run.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Stopped reports whether StopPropagation was called.
func (e *Event) Stopped() bool {
	return e.stopped
}

// Handler handles a dispatched event.
type Handler func(e *Event)

type listener struct {
	typ        string
	handler    Handler
	useCapture bool
}

// bubbles reports whether events of the type propagate up after the target phase.
func bubbles(typ string) bool {
	return typ != "blur" && typ != "focus"
}

// On registers handler for events of the type on target.
// Capture listeners run while the event travels down to its target.
func (d *Document) On(target *html.Node, typ string, handler Handler, useCapture bool) {
	if d.listeners == nil {
		d.listeners = make(map[*html.Node][]listener)
	}
	d.listeners[target] = append(d.listeners[target], listener{
		typ:        typ,
		handler:    handler,
		useCapture: useCapture,
	})
}

// Delegate registers one listener on target that runs handler only for events
// whose target is a descendant of target matching selector, now or added later.
// blur and focus do not bubble and are therefore handled in the capture phase.
func (d *Document) Delegate(target *html.Node, selector string, typ string, handler Handler) error {
	if _, err := d.QSA(selector, target); err != nil {
		return err
	}
	d.On(target, typ, func(e *Event) {
		candidates, err := d.QSA(selector, target)
		if err != nil {
			return
		}
		for _, n := range candidates {
			if n == e.Target {
				handler(e)
				return
			}
		}
	}, !bubbles(typ))
	return nil
}

// Dispatch sends an event of the type to target: capture listeners from the
// root down, then the listeners of target, then (for bubbling types) the
// non-capture listeners from the parent up to the root.
func (d *Document) Dispatch(target *html.Node, typ string) (*Event, error) {
	if target == nil {
		return nil, fmt.Errorf("dispatch %q: nil target", typ)
	}
	e := &Event{Type: typ, Target: target}

	var path []*html.Node // target's ancestors, closest first
	for p := target.Parent; p != nil; p = p.Parent {
		path = append(path, p)
	}

	e.Phase = PhaseCapture
	for i := len(path) - 1; i >= 0 && !e.stopped; i-- {
		d.invoke(e, path[i], func(l listener) bool { return l.useCapture })
	}

	if !e.stopped {
		e.Phase = PhaseTarget
		d.invoke(e, target, func(listener) bool { return true })
	}

	if bubbles(typ) {
		e.Phase = PhaseBubble
		for i := 0; i < len(path) && !e.stopped; i++ {
			d.invoke(e, path[i], func(l listener) bool { return !l.useCapture })
		}
	}

	e.Phase = PhaseNone
	e.CurrentTarget = nil
	return e, nil
}

func (d *Document) invoke(e *Event, node *html.Node, accept func(listener) bool) {
	e.CurrentTarget = node
	for _, l := range d.listeners[node] {
		if l.typ == e.Type && accept(l) {
			l.handler(e)
		}
	}
}
