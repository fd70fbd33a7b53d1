// Package dom provides small query and event helpers over golang.org/x/net/html
// trees: CSS selection (cascadia), a listener registry per Document, event
// delegation and an ancestor lookup by tag name.
//
// Dispatch follows the DOM event flow: capture, target, bubble. blur and focus
// skip the bubble phase, so Delegate listens for them while capturing.
package dom
