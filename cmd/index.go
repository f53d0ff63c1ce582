package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

var forceHTML bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "將資料建入向量資料庫",
}

var indexDocsCmd = &cobra.Command{
	Use:   "docs [directory]",
	Short: "索引一個目錄下的文件（文字、Markdown、HTML）",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexDocs,
}

var indexQACmd = &cobra.Command{
	Use:   "qa [file.csv]",
	Short: "索引政府常見問答資料集（CSV）",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexQA,
}

var indexGRBCmd = &cobra.Command{
	Use:   "grb [directory]",
	Short: "索引研究計畫資料（JSONL）",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexGRB,
}

func init() {
	indexDocsCmd.Flags().BoolVar(&forceHTML, "force-html", false,
		"將所有檔案一律以 HTML 解析")
	indexCmd.AddCommand(indexDocsCmd, indexQACmd, indexGRBCmd)
	rootCmd.AddCommand(indexCmd)
}

// withIndexLock serializes indexing runs across processes with a file
// lock, concurrent runs would duplicate work and thrash the embedder.
func withIndexLock(fn func() error) error {
	lockPath := filepath.Join(os.TempDir(), "dbqa-index.lock")
	lock := flock.New(lockPath)

	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring index lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another indexing run is in progress (lock %s)", lockPath)
	}
	defer func() { _ = lock.Unlock() }()

	return fn()
}

func runIndexDocs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withIndexLock(func() error {
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		stored, err := a.Ingest.IndexDir(ctx, args[0], forceHTML)
		if err != nil {
			return fmt.Errorf("indexing documents: %w", err)
		}
		fmt.Printf("已索引 %d 個段落。\n", stored)
		return nil
	})
}

func runIndexQA(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withIndexLock(func() error {
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		stored, err := a.Ingest.IndexQA(ctx, args[0])
		if err != nil {
			return fmt.Errorf("indexing QA dataset: %w", err)
		}
		fmt.Printf("已索引 %d 份文件。\n", stored)
		return nil
	})
}

func runIndexGRB(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withIndexLock(func() error {
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		stored, err := a.Ingest.IndexGRB(ctx, args[0])
		if err != nil {
			return fmt.Errorf("indexing GRB dataset: %w", err)
		}
		fmt.Printf("已索引 %d 份文件。\n", stored)
		return nil
	})
}
