package tasks

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/dTodo/lib/model"
	"github.com/ValentinKolb/dTodo/lib/template"
	"github.com/ValentinKolb/dTodo/lib/todo"
	"gopkg.in/yaml.v3"
	"io"
	"strings"
)

// parseQuery turns field=value arguments into a query.
// Values are JSON if they parse as JSON, text otherwise.
func parseQuery(args []string) (todo.Query, error) {
	query := todo.Query{}
	for _, arg := range args {
		field, raw, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("%w: %q (expected field=value)", todo.ErrInvalidQuery, arg)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		query[field] = value
	}
	return query, nil
}

// printTodos writes the records in the output format
func printTodos(w io.Writer, todos []todo.Todo, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(todos)
	case "yaml":
		return encodeYAML(w, todos)
	case "text", "":
		for _, t := range todos {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			if _, err := fmt.Fprintf(w, "[%s] %d %s\n", mark, t.ID, t.Title); err != nil {
				return err
			}
		}
		count := model.CountOf(todos)
		_, err := fmt.Fprintln(w, template.ItemCounter(count.Active))
		return err
	default:
		return fmt.Errorf("invalid output format %q, must be one of text, json, yaml", format)
	}
}

// printCount writes the counters in the output format
func printCount(w io.Writer, count model.Count, format string) error {
	switch format {
	case "json":
		return json.NewEncoder(w).Encode(count)
	case "yaml":
		return encodeYAML(w, count)
	case "text", "":
		lines := []string{template.ItemCounter(count.Active)}
		if clear := template.ClearCompletedButton(count.Completed); clear != "" {
			lines = append(lines, fmt.Sprintf("%s (%d)", clear, count.Completed))
		}
		lines = append(lines, fmt.Sprintf("total: %d", count.Total))
		_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
		return err
	default:
		return fmt.Errorf("invalid output format %q, must be one of text, json, yaml", format)
	}
}

// yamlTodo is the yaml layout of a record
type yamlTodo struct {
	ID        int64          `yaml:"id"`
	Title     string         `yaml:"title"`
	Completed bool           `yaml:"completed"`
	Extra     map[string]any `yaml:",inline"`
}

// encodeYAML writes v as yaml document
func encodeYAML(w io.Writer, v any) error {
	if todos, ok := v.([]todo.Todo); ok {
		rows := make([]yamlTodo, len(todos))
		for i, t := range todos {
			rows[i] = yamlTodo{ID: int64(t.ID), Title: t.Title, Completed: t.Completed, Extra: t.Extra}
		}
		v = rows
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
