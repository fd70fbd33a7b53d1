package tasks

import (
	"fmt"
	"github.com/ValentinKolb/dTodo/cmd/util"
	"github.com/ValentinKolb/dTodo/lib/model"
	"github.com/ValentinKolb/dTodo/lib/template"
	"github.com/ValentinKolb/dTodo/lib/todo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

var (
	addCmd = &cobra.Command{
		Use:   "add [title...]",
		Short: "Creates an active record",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := todoModel.Create(strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printTodos(cmd.OutOrStdout(), []todo.Todo{created}, viper.GetString("output"))
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists the records of the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			active, _ := cmd.Flags().GetBool("active")
			completed, _ := cmd.Flags().GetBool("completed")

			var query any
			switch {
			case active && completed:
				return fmt.Errorf("--active and --completed are mutually exclusive")
			case active:
				query = todo.Query{"completed": false}
			case completed:
				query = todo.Query{"completed": true}
			}

			todos, err := todoModel.Read(query)
			if err != nil {
				return err
			}
			return printTodos(cmd.OutOrStdout(), todos, viper.GetString("output"))
		},
	}
	findCmd = &cobra.Command{
		Use:   "find [field=value...]",
		Short: "Lists the records whose fields equal all given values",
		Long:  "Lists the records whose fields equal all given values. Values are parsed as JSON if possible (e.g. completed=false, id=1700000000000) and used as text otherwise.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := parseQuery(args)
			if err != nil {
				return err
			}
			todos, err := todoModel.Read(query)
			if err != nil {
				return err
			}
			return printTodos(cmd.OutOrStdout(), todos, viper.GetString("output"))
		},
	}
	doneCmd = &cobra.Command{
		Use:   "done [id]",
		Short: "Marks a record as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return update(cmd, args[0], todo.Patch{"completed": true})
		},
	}
	undoCmd = &cobra.Command{
		Use:   "undo [id]",
		Short: "Marks a record as active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return update(cmd, args[0], todo.Patch{"completed": false})
		},
	}
	editCmd = &cobra.Command{
		Use:   "edit [id] [title...]",
		Short: "Changes the title of a record",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return fmt.Errorf("the title must not be empty")
			}
			return update(cmd, args[0], todo.Patch{"title": title})
		},
	}
	rmCmd = &cobra.Command{
		Use:   "rm [id]",
		Short: "Removes a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := todo.ParseID(args[0])
			if err != nil {
				return err
			}
			todos, err := todoModel.Remove(id)
			if err != nil {
				return err
			}
			return printTodos(cmd.OutOrStdout(), todos, viper.GetString("output"))
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Removes all completed records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			completed, err := todoModel.Read(todo.Query{"completed": true})
			if err != nil {
				return err
			}
			todos, err := todoModel.Read(nil)
			if err != nil {
				return err
			}
			for _, t := range completed {
				if todos, err = todoModel.Remove(t.ID); err != nil {
					return err
				}
			}
			return printTodos(cmd.OutOrStdout(), todos, viper.GetString("output"))
		},
	}
	dropCmd = &cobra.Command{
		Use:   "drop",
		Short: "Removes all records of the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := todoModel.RemoveAll(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dropped %s\n", collection.Name())
			return nil
		},
	}
	countCmd = &cobra.Command{
		Use:   "count",
		Short: "Prints the active, completed and total count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := util.Count(collection)
			if err != nil {
				return err
			}
			return printCount(cmd.OutOrStdout(), count, viper.GetString("output"))
		},
	}
	showCmd = &cobra.Command{
		Use:   "show",
		Short: "Renders the collection as HTML page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			todos, err := todoModel.Read(nil)
			if err != nil {
				return err
			}
			return template.Page(cmd.OutOrStdout(), collection.Name(), todos, model.CountOf(todos))
		},
	}
)

func init() {
	listCmd.Flags().Bool("active", false, util.WrapString("Only list active records"))
	listCmd.Flags().Bool("completed", false, util.WrapString("Only list completed records"))
}

// update applies the patch to the record and prints the collection
func update(cmd *cobra.Command, rawID string, patch todo.Patch) error {
	id, err := todo.ParseID(rawID)
	if err != nil {
		return err
	}
	todos, err := todoModel.Update(id, patch)
	if err != nil {
		return err
	}
	return printTodos(cmd.OutOrStdout(), todos, viper.GetString("output"))
}
