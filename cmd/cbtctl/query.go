package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/cbtkit/cbt/areas"
	"github.com/joshuapare/cbtkit/cbt/tracker"
	"github.com/joshuapare/cbtkit/pkg/types"
)

var (
	queryDisk     diskRef
	queryChangeID string
)

func init() {
	cmd := newQueryCmd()
	addDiskFlags(cmd, &queryDisk)
	cmd.Flags().StringVar(&queryChangeID, "change-id", string(types.WildcardToken),
		`Change token to query from ("*" for every allocated area)`)
	rootCmd.AddCommand(cmd)
}

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query vCenter for the areas of a disk changed since a token",
		Long: `The query command resolves a disk on a VM snapshot and prints the changed-areas
document for it: the queried token, the new token to use next time, the
backing file, and the raw changed areas.

Connection settings come from VCENTER_HOST, VCENTER_USER, VCENTER_PASS and
VCENTER_INSECURE, optionally loaded from --env-file.

Example:
  cbtctl query --vm vm01 --snapshot backup --disk-id scsi0:0
  cbtctl query --vm vm01 --snapshot backup --disk-id scsi0:0 --change-id "52 9c 2a/14"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd)
		},
	}
	return cmd
}

func runQuery(cmd *cobra.Command) error {
	ctx := cmd.Context()
	id, err := queryDisk.validate()
	if err != nil {
		return err
	}
	src, handle, err := queryDisk.open(ctx, id)
	if err != nil {
		return err
	}
	defer src.Close(ctx)

	state := tracker.NewSyncState(id.String())
	if t := types.ChangeToken(queryChangeID); !t.IsZero() && !t.IsWildcard() {
		state.PreviousToken = t
	}
	tr := tracker.New(src, tracker.WithGap(settings.CoalesceGap), tracker.WithLogger(logger))
	epoch, err := tr.Query(ctx, state, handle)
	if err != nil {
		return err
	}

	doc := &areas.Document{
		DiskID:      id.String(),
		ChangeID:    epoch.Previous,
		NewChangeID: epoch.Token,
		VMDKPath:    epoch.BackingFile,
		Areas:       epoch.Raw,
	}
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}
