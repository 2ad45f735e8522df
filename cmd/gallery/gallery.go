package gallery

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tphakala/facewatch/internal/conf"
	"github.com/tphakala/facewatch/internal/datastore"
	"github.com/tphakala/facewatch/internal/gallery"
)

// Command creates the gallery administration command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Manage saved faces",
	}

	cmd.AddCommand(listCommand(settings), removeCommand(settings))
	return cmd
}

func listCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved faces in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGallery(settings, func(store *gallery.Store) error {
				faces := store.List()
				if len(faces) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No saved faces")
					return nil
				}
				for i, face := range faces {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", i, face.Name, gallery.FileName(face.Name))
				}
				return nil
			})
		},
	}
}

func removeCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "remove [index]",
		Short: "Remove the saved face at index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[0], err)
			}
			return withGallery(settings, func(store *gallery.Store) error {
				removed, err := store.Remove(index)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s, %d saved faces left\n", removed.Name, store.Len())
				return nil
			})
		},
	}
}

func withGallery(settings *conf.Settings, fn func(*gallery.Store) error) error {
	db, err := datastore.OpenStore(settings)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := gallery.Open(db, settings.Output.FacesPath)
	if err != nil {
		return err
	}
	return fn(store)
}
