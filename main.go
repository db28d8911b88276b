package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/spf13/viper"

	"github.com/spred/offline-downloader/internal/config"
	"github.com/spred/offline-downloader/internal/download"
	"github.com/spred/offline-downloader/internal/ui"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppName = "Spred Offline"

	WindowWidth  = 420
	WindowHeight = 720
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	logger.Info("starting", "app", AppName, "version", version)

	myApp := app.NewWithID(config.AppID)
	myApp.Settings().SetTheme(ui.NewSpredTheme())

	myWindow := myApp.NewWindow(fmt.Sprintf("%s v%s", AppName, version))
	myWindow.Resize(fyne.NewSize(WindowWidth, WindowHeight))

	// Environment overrides first, then device preferences
	cfg, err := config.Load(viper.New())
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	settings := config.NewSettings(myApp)
	settings.ApplyTo(cfg)

	engine, err := download.NewServiceFromConfig(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to start download engine", "error", err)
		os.Exit(1)
	}

	ui.NewRootUI(myWindow, engine, settings, logger)
	myWindow.ShowAndRun()
}
