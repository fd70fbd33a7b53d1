package cmd

import (
	"fmt"
	"github.com/ValentinKolb/dTodo/cmd/serve"
	"github.com/ValentinKolb/dTodo/cmd/tasks"
	"github.com/ValentinKolb/dTodo/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dtodo",
		Short: "todo list server and client",
		Long: fmt.Sprintf(`dTodo (v%s)

A todo list kept as one document per collection on a pluggable slot
database (in-memory, sqlite or raft replicated), served over HTTP.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dTodo",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dTodo v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(tasks.TodoCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob, yaml, binary), must match the server"))

	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http, tcp, unix), must match the server. tcp and unix work best with the binary serializer"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
