package main

import "os"

// version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
