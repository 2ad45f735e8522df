package cameras

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tphakala/facewatch/internal/cameras"
	"github.com/tphakala/facewatch/internal/conf"
	"github.com/tphakala/facewatch/internal/datastore"
	"github.com/tphakala/facewatch/internal/notification"
)

// Command creates the camera administration command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cameras",
		Short: "Manage capture sources",
		Long:  `Manage the stored camera list used by watch. The default camera "user" is always available.`,
	}

	cmd.AddCommand(listCommand(settings), addCommand(settings), removeCommand(settings))
	return cmd
}

func listCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List selectable cameras",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCameras(settings, func(store *cameras.Store) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "-\t%s\n", cameras.DefaultCamera)
				for i, entry := range store.List() {
					fmt.Fprintf(out, "%d\t%s\n", i, entry)
				}
				return nil
			})
		},
	}
}

func addCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "add [url]",
		Short: "Add a device index or stream URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCameras(settings, func(store *cameras.Store) error {
				if _, err := store.Add(args[0]); err != nil {
					return err
				}
				toast := notification.NewToast(notification.MsgCameraAdded, notification.ToastTypeSuccess).
					WithComponent("cameras")
				fmt.Fprintln(cmd.OutOrStdout(), toast.String())
				return nil
			})
		},
	}
}

func removeCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "remove [index]",
		Short: "Remove the stored camera at index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[0], err)
			}
			return withCameras(settings, func(store *cameras.Store) error {
				removed, err := store.Remove(index)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", removed)
				return nil
			})
		},
	}
}

func withCameras(settings *conf.Settings, fn func(*cameras.Store) error) error {
	db, err := datastore.OpenStore(settings)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := cameras.Open(db)
	if err != nil {
		return err
	}
	return fn(store)
}
