package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/cbtkit/internal/state"
	"github.com/joshuapare/cbtkit/pkg/types"
)

var stateKey string

func init() {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or reset recorded change tokens",
	}
	addStateFlags(cmd)
	cmd.PersistentFlags().StringVar(&stateKey, "key", "", "State key, e.g. vm01/scsi0:0")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print the recorded token for --key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runStateGet(cmd)
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Forget the token for --key so the next sync copies every allocated area",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runStateReset(cmd)
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List every recorded token",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runStateList(cmd)
			},
		},
	)
	rootCmd.AddCommand(cmd)
}

// addStateFlags registers the state store flags. They are persistent so
// subcommands inherit them.
func addStateFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("state-backend", state.BackendFile, "State store backend (file or leveldb)")
	cmd.PersistentFlags().String("state-path", "cbtkit-state.json", "State file or database directory")
}

func openState() (state.Store, error) {
	return state.Open(settings.StateBackend, settings.StatePath)
}

func requireKey() error {
	if stateKey == "" {
		return types.Errorf(types.ErrKindConfig, "--key is required")
	}
	return nil
}

type stateEntry struct {
	Key         string            `json:"key"`
	Token       types.ChangeToken `json:"token"`
	Initialized bool              `json:"initialized"`
}

func runStateGet(cmd *cobra.Command) error {
	if err := requireKey(); err != nil {
		return err
	}
	store, err := openState()
	if err != nil {
		return err
	}
	defer store.Close()

	token, ok, err := store.Load(cmd.Context(), stateKey)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(stateEntry{Key: stateKey, Token: token, Initialized: ok})
	}
	if !ok {
		printInfo("%s: uninitialized (next sync queries %q)\n", stateKey, types.WildcardToken)
		return nil
	}
	printInfo("%s: %s\n", stateKey, token)
	return nil
}

func runStateReset(cmd *cobra.Command) error {
	if err := requireKey(); err != nil {
		return err
	}
	store, err := openState()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Context(), stateKey); err != nil {
		return err
	}
	printInfo("%s: reset\n", stateKey)
	return nil
}

func runStateList(cmd *cobra.Command) error {
	store, err := openState()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOut {
		out := make([]stateEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, stateEntry{Key: e.DiskID, Token: e.Token, Initialized: true})
		}
		return printJSON(out)
	}
	for _, e := range entries {
		printInfo("%s\t%s\n", e.DiskID, e.Token)
	}
	return nil
}
