package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twnlp/dbqa/internal/chatmodel"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "進入多輪對話模式",
	Long: `進入多輪對話模式。對話歷史只保留在目前的行程內，結束後不會
儲存。輸入 exit 或 quit 離開，輸入 reset 清空對話歷史。`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return chatLoop(ctx, a.Model, os.Stdin, os.Stdout)
}

// generator matches chatmodel.Model for the REPL.
type generator interface {
	Generate(ctx context.Context, messages []chatmodel.Message, stop []string) (string, error)
}

func chatLoop(ctx context.Context, model generator, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "輸入問題開始對話。exit 離開，reset 清空歷史。")

	var history []chatmodel.Message
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return scanner.Err()
		case "reset":
			history = nil
			fmt.Fprintln(out, "已清空對話歷史。")
			continue
		}

		history = append(history, chatmodel.User(line))
		answer, err := model.Generate(ctx, history, nil)
		if err != nil {
			return fmt.Errorf("generating reply: %w", err)
		}
		history = append(history, chatmodel.Assistant(answer))
		fmt.Fprintln(out, answer)
	}
	return scanner.Err()
}
