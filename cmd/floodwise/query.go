package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mbaizhakyp/floodwise/internal/pipeline"
	"github.com/mbaizhakyp/floodwise/internal/report"
)

var (
	queryJSON    bool
	queryMDPath  string
	queryPDFPath string
)

var queryCmd = &cobra.Command{
	Use:   "query \"question\"",
	Short: "Answer a flood question from the command line",
	Long: `Runs the full pipeline for one question and prints the answer. Use the
output flags to also write the result as JSON, Markdown, or PDF.`,
	Args: cobra.ExactArgs(1),
	RunE: runQueryCmd,
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print the full result as JSON")
	queryCmd.Flags().StringVar(&queryMDPath, "md", "", "write a Markdown report to this path")
	queryCmd.Flags().StringVar(&queryPDFPath, "pdf", "", "write a PDF report to this path")
	rootCmd.AddCommand(queryCmd)
}

func runQueryCmd(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		uiError("%v", err)
		return err
	}

	a, err := buildApp(cfg, logger, false)
	if err != nil {
		uiError("%v", err)
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	s := newSpinner("Answering...")
	s.Start()
	result, err := a.pipeline.Run(ctx, args[0])
	s.Stop()
	if err != nil {
		uiError("query failed: %v", err)
		return err
	}

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else {
		uiSection("Answer")
		if result.Answer != "" {
			fmt.Println(result.Answer)
		} else {
			fmt.Println("No answer generated.")
		}
		for _, warning := range result.Warnings {
			uiError("%s", warning)
		}
	}

	if queryMDPath != "" {
		if err := writeFile(queryMDPath, []byte(report.Markdown(result))); err != nil {
			return err
		}
		uiSuccess("Markdown report written to %s", queryMDPath)
	}

	if queryPDFPath != "" {
		if err := writePDF(queryPDFPath, result); err != nil {
			return err
		}
		uiSuccess("PDF report written to %s", queryPDFPath)
	}

	return nil
}

func writePDF(path string, result *pipeline.Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return report.PDF(result, f)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
