package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// errRoomMissing makes `exists` exit with status 1 without printing an error.
type errRoomMissing struct {
	room string
}

func (e errRoomMissing) Error() string { return "room " + e.room + " does not exist" }

func createCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new room and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := a.lobby().CreateRoom(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), state.RoomID)
			return nil
		},
	}
}

func existsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <room>",
		Short: "Check whether a room exists",
		Long: `Check whether a room exists.

Prints true or false. The exit status is 1 when the room is missing,
so the command can be used in scripts:

  talespin exists ab12 && talespin play --room ab12 --name Ann`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.lobby().RoomExists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			if !ok {
				return errRoomMissing{room: args[0]}
			}
			return nil
		},
	}
}

func statsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show active players per room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.lobby().Stats(cmd.Context())
			if err != nil {
				return err
			}

			rooms := make([]string, 0, len(stats))
			for room := range stats {
				rooms = append(rooms, room)
			}
			sort.Strings(rooms)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-8s %7s  %s\n", "ROOM", "PLAYERS", "LAST ACCESS")
			for _, room := range rooms {
				s := stats[room]
				fmt.Fprintf(out, "%-8s %7d  %s\n", strings.ToLower(room), s.ActivePlayers, s.LastAccess.Format(time.RFC3339))
			}
			return nil
		},
	}
}
