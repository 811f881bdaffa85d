// Package vocab implements vocabulary administration commands.
package vocab

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tablevox/prefsel/internal/conf"
	"github.com/tablevox/prefsel/internal/datastore"
	"github.com/tablevox/prefsel/internal/vocabulary"
)

// Command creates the vocab command with its list and add subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Manage the selection vocabularies",
	}

	cmd.AddCommand(listCommand(settings), addCommand(settings))
	return cmd
}

// withRegistry opens the datastore for the duration of one admin operation.
func withRegistry(settings *conf.Settings, fn func(*vocabulary.Registry) error) error {
	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer store.Close() //nolint:errcheck // read-mostly admin session

	return fn(vocabulary.NewRegistry(store))
}

func listCommand(settings *conf.Settings) *cobra.Command {
	var showAll bool

	cmd := &cobra.Command{
		Use:   "list [domain]",
		Short: "List the entities of a selection domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(settings, func(registry *vocabulary.Registry) error {
				ctx := context.Background()
				domain := args[0]

				var entities []datastore.Entity
				var err error
				if showAll {
					entities, err = registry.ListAll(ctx, domain)
				} else {
					entities, err = registry.ListActive(ctx, domain)
				}
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tCODE\tACTIVE")
				for i := range entities {
					e := &entities[i]
					fmt.Fprintf(w, "%d\t%s\t%s\t%t\n", e.ID, e.Name, e.Code, e.Active)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&showAll, "all", false, "Include retired entities")
	return cmd
}

func addCommand(settings *conf.Settings) *cobra.Command {
	var code, description string

	cmd := &cobra.Command{
		Use:   "add [domain] [name]",
		Short: "Add an entity to a selection domain",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(settings, func(registry *vocabulary.Registry) error {
				entity, err := registry.Add(context.Background(), args[0], args[1], code, description)
				if err != nil {
					return err
				}
				fmt.Printf("added %q to %q with id %d\n", entity.Name, args[0], entity.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Optional short code, e.g. an ISO 639-1 language code")
	cmd.Flags().StringVar(&description, "description", "", "Optional description")
	return cmd
}
