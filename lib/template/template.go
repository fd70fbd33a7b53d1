package template

import (
	_ "embed"
	"fmt"
	"github.com/ValentinKolb/dTodo/lib/model"
	"github.com/ValentinKolb/dTodo/lib/todo"
	htmltemplate "html/template"
	"io"
	"strings"
)

const itemTemplate = `<li data-id="{{id}}" class="{{completed}}">` +
	`<div class="view">` +
	`<input class="toggle" type="checkbox" {{checked}}>` +
	`<label>{{title}}</label>` +
	`<button class="destroy"></button>` +
	`</div>` +
	`</li>`

//go:embed page.html
var pageSource string

var page = htmltemplate.Must(htmltemplate.New("page").Parse(pageSource))

// Show renders one <li> per record, in the given order.
func Show(todos []todo.Todo) string {
	var b strings.Builder
	for _, t := range todos {
		completed, checked := "", ""
		if t.Completed {
			completed, checked = "completed", "checked"
		}
		strings.NewReplacer(
			"{{id}}", t.ID.String(),
			"{{title}}", Escape(t.Title),
			"{{completed}}", completed,
			"{{checked}}", checked,
		).WriteString(&b, itemTemplate)
	}
	return b.String()
}

// ItemCounter returns "1 item left" or "<n> items left".
func ItemCounter(active int) string {
	return fmt.Sprintf("%d item%s left", active, plural(active))
}

// ItemCounterHTML is ItemCounter with the number wrapped in <strong>.
func ItemCounterHTML(active int) string {
	return fmt.Sprintf("<strong>%d</strong> item%s left", active, plural(active))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// ClearCompletedButton returns the label of the clear button, empty if nothing is completed.
func ClearCompletedButton(completed int) string {
	if completed > 0 {
		return "Clear completed"
	}
	return ""
}

type pageData struct {
	Name      string
	List      htmltemplate.HTML
	Counter   htmltemplate.HTML
	Clear     string
	Total     int
	Completed int
}

// Page writes the read-only HTML page of a collection.
func Page(w io.Writer, name string, todos []todo.Todo, count model.Count) error {
	return page.Execute(w, pageData{
		Name:      name,
		List:      htmltemplate.HTML(Show(todos)),
		Counter:   htmltemplate.HTML(ItemCounterHTML(count.Active)),
		Clear:     ClearCompletedButton(count.Completed),
		Total:     count.Total,
		Completed: count.Completed,
	})
}
