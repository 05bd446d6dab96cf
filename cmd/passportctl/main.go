package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"passportphoto/internal/infra"
	"passportphoto/internal/providers/genai"
	"passportphoto/internal/render"
	"passportphoto/internal/storage"
)

var (
	inputFlag     string
	outputDirFlag string
	modelFlag     string
)

var rootCmd = &cobra.Command{
	Use:   "passportctl",
	Short: "Turn a portrait into a passport photo from the command line",
	Long: `passportctl runs the same two-pass correction as the web app.

The first pass fixes framing and background, the second fixes lighting.
The result is saved as a JPEG.

Examples:
  passportctl correct --input me.jpg
  passportctl correct -i me.png -o ./out --model gemini-2.5-flash-image
  passportctl check`,
	SilenceUsage: true,
}

var correctCmd = &cobra.Command{
	Use:   "correct",
	Short: "Correct a portrait and write " + render.DownloadFileName,
	RunE:  runCorrect,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether a Gemini credential is configured",
	RunE:  runCheck,
}

func init() {
	correctCmd.Flags().StringVarP(&inputFlag, "input", "i", "", "Portrait image to correct")
	correctCmd.Flags().StringVarP(&outputDirFlag, "output-dir", "o", ".", "Directory for the corrected photo")
	correctCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini model override (defaults to GEMINI_MODEL)")
	_ = correctCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(correctCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadClient(ctx context.Context) (*genai.Client, infra.Logger, error) {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, infra.Logger{}, err
	}
	logger := infra.NewLogger(cfg.AppEnv)

	model := cfg.GeminiModel
	if modelFlag != "" {
		model = modelFlag
	}
	client, err := genai.NewClient(ctx, genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   model,
		Timeout: cfg.GeminiTimeout,
		Logger:  &logger,
	})
	if err != nil {
		return nil, logger, err
	}
	return client, logger, nil
}

func runCorrect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client, logger, err := loadClient(ctx)
	if err != nil {
		return err
	}
	store, err := storage.NewFileStore(outputDirFlag)
	if err != nil {
		return err
	}

	logger.Info().
		Str("input", inputFlag).
		Str("output_dir", store.BasePath()).
		Str("model", client.Model()).
		Msg("starting correction")

	path, err := correctFile(ctx, client, store, inputFlag, &logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client, _, err := loadClient(ctx)
	if err != nil {
		return err
	}
	if !client.Configured() {
		return errors.New(genai.MissingKeyMessage)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Gemini credential configured (model %s)\n", client.Model())
	return nil
}
