// Package cmd implements the dbqa command line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/twnlp/dbqa/internal/app"
	"github.com/twnlp/dbqa/internal/config"
	"github.com/twnlp/dbqa/internal/log"
)

var (
	logLevel string
	logJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "dbqa",
	Short: "dbqa - 本地文件問答工具",
	Long: `dbqa 以本地文件為基礎回答問題。

先用 index 子命令把文件、政府常見問答或研究計畫資料建入向量資料庫，
再用 ask 提問，或用 chat 進入多輪對話。模型推論透過 llama.cpp 相容的
伺服器進行，向量計算透過 Ollama。`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false,
		"emit logs as JSON")
}

// setup loads configuration, builds the logger and wires the
// application. Callers must Close the returned App.
func setup(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	logger := log.New(log.Config{Level: log.ParseLevel(logLevel), JSON: logJSON})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, nil
}
