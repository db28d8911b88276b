package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var checkTitle string

// checkCmd reports whether content is already stored on this device
var checkCmd = &cobra.Command{
	Use:   "check <content-key>",
	Short: "Report whether content has already been downloaded",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := createContext()
		defer stop()

		service, err := createService(ctx)
		if err != nil {
			return err
		}
		defer service.Close()

		if path, ok := service.CheckExisting(args[0], checkTitle); ok {
			fmt.Println(path)
			return nil
		}
		return fmt.Errorf("%s has not been downloaded", args[0])
	},
}

// listCmd lists the downloads in every storage folder
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List downloaded content",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := createContext()
		defer stop()

		service, err := createService(ctx)
		if err != nil {
			return err
		}
		defer service.Close()

		downloads, err := service.ListDownloads()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tTITLE\tSIZE\tDOWNLOADED\tPATH")
		for _, d := range downloads {
			if d.Metadata == nil {
				fmt.Fprintf(w, "-\t-\t-\t-\t%s\n", d.FilePath)
				continue
			}
			md := d.Metadata
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				md.OriginalKey,
				md.OriginalTitle,
				md.ActualSizeBytes,
				time.UnixMilli(md.DownloadedAtEpochMs).Format(time.RFC3339),
				d.FilePath)
		}
		return w.Flush()
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkTitle, "title", "t", "", "display title used for the filename")
}
