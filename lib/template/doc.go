// Package template renders todo records to HTML fragments and to the page
// served by the dtodo server.
package template
