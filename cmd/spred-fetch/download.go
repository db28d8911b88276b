package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spred/offline-downloader/internal/model"
)

type DownloadFlags struct {
	Title string
	Force bool
}

var downloadFlags DownloadFlags

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download <content-key>",
	Short: "Download one content item",
	Long: `Download one content item. This will:

1. Check the auth token expiry locally
2. Ask the content endpoint for the media or a download location
3. Write the file atomically into the storage folder
4. Write the metadata sidecar next to it

The token, user id and wallet may also be set with SPRED_TOKEN, SPRED_USER_ID
and SPRED_WALLET.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDownload(args[0], &downloadFlags)
	},
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadFlags.Title, "title", "t", "", "display title used for the filename")
	downloadCmd.Flags().BoolVarP(&downloadFlags.Force, "force", "f", false, "download again when the content already exists")
}

func runDownload(contentKey string, flags *DownloadFlags) error {
	ctx, stop := createContext()
	defer stop()

	service, err := createService(ctx)
	if err != nil {
		return err
	}
	defer service.Close()

	if path, ok := service.CheckExisting(contentKey, flags.Title); ok && !flags.Force {
		fmt.Printf("Already downloaded: %s\n", path)
		return nil
	}

	req := model.TransferRequest{
		ContentKey:      contentKey,
		DisplayTitle:    flags.Title,
		AuthToken:       viper.GetString("token"),
		UserID:          viper.GetString("user_id"),
		WalletReference: viper.GetString("wallet"),
	}
	if req.WalletReference != "" {
		balance := service.Balance(ctx, req.AuthToken, req.WalletReference)
		logger.Info("wallet balance", "currency", balance.Currency, "available", balance.Available, "degraded", balance.Degraded)
	}

	session, err := service.Start(ctx, req)
	if err != nil {
		return err
	}
	events, unsubscribe := session.Subscribe(32)
	defer unsubscribe()

	bar := newProgressBar(contentKey)
	var outcome model.TransferOutcome
	for e := range events {
		_ = bar.Set(e.Progress.Percent())
		bar.Describe(fmt.Sprintf("%-13s %s", e.State, contentKey))
		if e.Terminal() {
			outcome = *e.Outcome
		}
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	return report(outcome)
}

func newProgressBar(contentKey string) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetDescription(contentKey),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetPredictTime(false),
	)
}

// report prints the outcome and turns failures into a command error
func report(outcome model.TransferOutcome) error {
	switch outcome.Kind {
	case model.OutcomeCompleted:
		fmt.Printf("Saved to %s\n", outcome.FilePath)
		return nil
	case model.OutcomeCancelled:
		return errors.New("download cancelled")
	case model.OutcomeFailed:
		f := outcome.Failure
		return fmt.Errorf("download failed (%s): %s", f.Kind, f.Remediation().Message())
	}
	return fmt.Errorf("download ended without an outcome")
}
