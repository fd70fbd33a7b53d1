package tasks

import (
	"github.com/ValentinKolb/dTodo/cmd/util"
	"github.com/ValentinKolb/dTodo/lib/model"
	"github.com/spf13/cobra"
)

var (
	collection util.Collection
	todoModel  *model.Model

	// TodoCommands represents the todo command group
	TodoCommands = &cobra.Command{
		Use:                "todo",
		Short:              "Manage the records of a collection",
		PersistentPreRunE:  setupCollection,
		PersistentPostRunE: closeCollection,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the todo command
	util.SetupRPCClientFlags(TodoCommands)

	TodoCommands.PersistentFlags().StringP("output", "o", "text", util.WrapString("Output format (text, json, yaml)"))

	// Add subcommands
	TodoCommands.AddCommand(addCmd)
	TodoCommands.AddCommand(listCmd)
	TodoCommands.AddCommand(findCmd)
	TodoCommands.AddCommand(doneCmd)
	TodoCommands.AddCommand(undoCmd)
	TodoCommands.AddCommand(editCmd)
	TodoCommands.AddCommand(rmCmd)
	TodoCommands.AddCommand(clearCmd)
	TodoCommands.AddCommand(dropCmd)
	TodoCommands.AddCommand(countCmd)
	TodoCommands.AddCommand(showCmd)
	TodoCommands.AddCommand(perfTestCmd)
}

// setupCollection opens the local or remote collection
func setupCollection(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	c, err := util.OpenCollection()
	if err != nil {
		return err
	}
	collection = c
	todoModel = model.New(c)
	return nil
}

func closeCollection(_ *cobra.Command, _ []string) error {
	if collection == nil {
		return nil
	}
	return collection.Close()
}
