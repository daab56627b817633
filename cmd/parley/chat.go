package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/TFMV/parley/cmd/parley/config"
	"github.com/TFMV/parley/cmd/parley/server"
	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/infrastructure/pool"
	"github.com/TFMV/parley/pkg/models"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive session",
	Long: `Start an interactive conversation with the configured database.

Generated SQL is always shown and held until you approve it. Inside the
session, /schema prints the introspected tables, /clear resets the
conversation, and /quit exits.`,
	RunE: runChat,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question",
	Long: `Ask one question and exit.

Without --approve the generated SQL is printed and nothing executes;
--approve is the explicit approval that lets it run.

Example:
  parley ask "total sales by region"
  parley ask --approve "total sales by region"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := setupLogging(cfg.Log)

	ctx := context.Background()
	app, err := server.BuildApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer app.Close(ctx)

	state := models.NewSessionState(uuid.NewString())
	printBanner(cfg)

	reader := bufio.NewReader(os.Stdin)
	for {
		pterm.Print(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold).Sprint("you> "))
		line, err := reader.ReadString('\n')
		if err != nil {
			pterm.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			pterm.Println("Bye!")
			return nil
		case "/help":
			printHelp()
			continue
		case "/clear":
			renderPayload(app.Approval.Clear(ctx, state), cfg.Output.Dir)
			continue
		case "/schema":
			printSchema(ctx, app)
			continue
		}

		payload, err := app.Conversation.ProcessUtterance(ctx, state, line)
		if err != nil {
			pterm.Error.Println(errors.GetMessage(err))
			continue
		}
		renderPayload(payload, cfg.Output.Dir)

		if payload.Kind == models.PayloadApproval {
			if promptApproval(reader) {
				renderPayload(app.Approval.Approve(ctx, state), cfg.Output.Dir)
			} else {
				renderPayload(app.Approval.Deny(ctx, state), cfg.Output.Dir)
			}
		}
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := setupLogging(cfg.Log)

	ctx := context.Background()
	app, err := server.BuildApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer app.Close(ctx)

	state := models.NewSessionState(uuid.NewString())
	utterance := strings.Join(args, " ")

	payload, err := app.Conversation.ProcessUtterance(ctx, state, utterance)
	if err != nil {
		return fmt.Errorf("%s", errors.GetMessage(err))
	}
	renderPayload(payload, cfg.Output.Dir)

	if payload.Kind == models.PayloadApproval {
		approve, _ := cmd.Flags().GetBool("approve")
		if !approve {
			pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint("Re-run with --approve to execute this SQL."))
			return nil
		}
		renderPayload(app.Approval.Approve(ctx, state), cfg.Output.Dir)
	}
	return nil
}

// printBanner shows the session header with the masked connection target.
func printBanner(cfg *config.Config) {
	model := cfg.LLM.Model
	if model == "" {
		model = "default"
	}

	pterm.Println()
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold).Sprint("parley ") + pterm.NewStyle(pterm.FgGray).Sprint(version))
	pterm.Println(pterm.NewStyle(pterm.FgLightBlue).Sprint("→ Database: ") + pool.MaskDSN(cfg.Database.DSN))
	pterm.Println(pterm.NewStyle(pterm.FgLightBlue).Sprint("→ Model:    ") + cfg.LLM.Provider + "/" + model)
	pterm.Println("Ask a question in plain language, or /help for commands.")
	pterm.Println()
}

func printHelp() {
	pterm.Println("Commands:")
	pterm.Println("  /schema   show the introspected tables")
	pterm.Println("  /clear    reset the conversation")
	pterm.Println("  /quit     exit")
}

// printSchema lists every table fragment the classifier can see.
func printSchema(ctx context.Context, app *server.App) {
	fragments, err := app.Schema.Retrieve(ctx, "", 1000)
	if err != nil {
		pterm.Error.Println(errors.GetMessage(err))
		return
	}
	if len(fragments) == 0 {
		pterm.Info.Println("The database has no user tables.")
		return
	}
	for _, fragment := range fragments {
		pterm.Println(fragment)
	}
}

// promptApproval asks for the explicit go-ahead on pending SQL.
func promptApproval(reader *bufio.Reader) bool {
	pterm.Print("Press Enter or type yes to approve, no to deny: ")
	ans, _ := reader.ReadString('\n')
	ans = strings.ToLower(strings.TrimSpace(ans))
	return ans == "" || ans == "y" || ans == "yes"
}

// renderPayload prints one pipeline result. File and chart payloads are
// written under outDir.
func renderPayload(payload *models.OutputPayload, outDir string) {
	if payload == nil {
		return
	}

	switch payload.Kind {
	case models.PayloadApproval:
		pterm.Warning.Println(payload.Text)
		pterm.Println(pterm.NewStyle(pterm.FgYellow).Sprint("  " + payload.SQL))
	case models.PayloadTable:
		pterm.Println(payload.Text)
		renderTable(payload.Rows, payload.Columns)
		if payload.SQL != "" {
			pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint("sql: " + payload.SQL))
		}
	case models.PayloadFile, models.PayloadChart:
		path, err := writeArtifact(payload, outDir)
		if err != nil {
			pterm.Error.Println(err.Error())
			return
		}
		pterm.Success.Println(payload.Text)
		pterm.Println("Saved to " + path)
		if payload.ObjectURL != "" {
			pterm.Println("Uploaded to " + payload.ObjectURL)
		}
	default:
		pterm.Println(payload.Text)
	}
}

// renderTable prints rows in select-list column order.
func renderTable(rows []models.Row, columns []string) {
	if len(rows) == 0 {
		return
	}
	if len(columns) == 0 {
		for name := range rows[0] {
			columns = append(columns, name)
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(columns)
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = formatCell(row[col])
		}
		table.Append(cells)
	}
	table.Render()
}

func formatCell(value interface{}) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}

// writeArtifact stores file bytes under outDir and returns the path.
func writeArtifact(payload *models.OutputPayload, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(outDir, payload.FileName)
	if err := os.WriteFile(path, payload.FileBytes, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", payload.FileName, err)
	}
	return path, nil
}
