package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/securelab/backend/internal/config"
	"github.com/securelab/backend/internal/db"
	"github.com/securelab/backend/internal/logger"
	"github.com/securelab/backend/internal/services"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "assistant-cli",
	Short: "Talk to the SecureLab assistant from a terminal",
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Send a single message, or start a REPL without --message",
	RunE:  runChat,
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Generate insights for the current system state",
	RunE:  runInsights,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print the system context sent to the model",
	RunE:  runSnapshot,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render markdown from stdin to HTML",
	RunE: func(cmd *cobra.Command, args []string) error {
		return renderMarkdown(cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var (
	messageFlag string
	htmlFlag    bool
)

func init() {
	chatCmd.Flags().StringVarP(&messageFlag, "message", "m", "", "Single message to send")
	chatCmd.Flags().BoolVar(&htmlFlag, "html", false, "Print rendered HTML instead of raw text")
	rootCmd.AddCommand(chatCmd, insightsCmd, snapshotCmd, renderCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type pipeline struct {
	snapshots *services.SnapshotService
	assistant *services.AssistantService
}

func newPipeline() (*pipeline, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Initialize(cfg.LogLevel, cfg.LogFile)

	conn, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	snapshots := services.NewSnapshotService(services.NewGormSnapshotSource(conn), cfg.Assistant.Limits, cfg.Assistant.CacheTTL)
	model := services.NewGeminiService(cfg.Gemini)
	return &pipeline{
		snapshots: snapshots,
		assistant: services.NewAssistantService(snapshots, model, cfg.Assistant),
	}, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if messageFlag != "" {
		return chatOnce(ctx, p.assistant, messageFlag, cmd.OutOrStdout())
	}
	return chatREPL(ctx, p.assistant, cmd.InOrStdin(), cmd.OutOrStdout())
}

func chatOnce(ctx context.Context, assistant *services.AssistantService, message string, out io.Writer) error {
	reply, err := assistant.SendChatMessage(ctx, message)
	if err != nil {
		return fmt.Errorf("%s", services.UserMessage(err))
	}
	if htmlFlag {
		fmt.Fprintln(out, reply.HTML)
	} else {
		fmt.Fprintln(out, reply.Text)
	}
	return nil
}

func chatREPL(ctx context.Context, assistant *services.AssistantService, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "SecureLab assistant. Type 'exit' to quit, 'clear' to reset the conversation.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "clear":
			assistant.ClearConversation()
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		}
		if err := chatOnce(ctx, assistant, line, out); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
}

func runInsights(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	result := p.assistant.GetInsights(context.Background())
	return writeJSON(cmd.OutOrStdout(), result)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	snapshot, err := p.snapshots.GetSystemSnapshot(context.Background())
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), snapshot)
}

func renderMarkdown(in io.Reader, out io.Writer) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	_, err = fmt.Fprintln(out, services.RenderMarkdown(string(raw)))
	return err
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
