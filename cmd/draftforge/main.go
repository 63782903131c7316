package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "draftforge",
		Short: "Retrieval-augmented long-form report generation",
	}

	logger := logrus.New()
	if os.Getenv("DRAFTFORGE_DEBUG") != "" {
		logger.SetLevel(logrus.DebugLevel)
	}

	root.AddCommand(newGenerateCmd(logger))
	root.AddCommand(newListCmd(logger))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
