package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"restronaut/internal/config"
	"restronaut/internal/daemon"
	"restronaut/internal/logging"
	"restronaut/internal/workflow"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "process <file>...",
		Short: "Process drop files once without watching",
		Long: "Run files through the same classify, report, archive, and delete steps the daemon uses.\n" +
			"The folder role is taken from the watch folder that holds the file unless --role is given.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: []string{"stderr"},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			components, err := daemon.BuildComponents(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer components.Close()

			var (
				rows     [][]string
				retained int
			)
			for _, arg := range args {
				path, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", arg, err)
				}
				if info, err := os.Stat(path); err != nil {
					return fmt.Errorf("stat %s: %w", arg, err)
				} else if info.IsDir() {
					return fmt.Errorf("%s is a directory", arg)
				}

				proc, err := selectProcessor(components, cfg, role, path)
				if err != nil {
					return err
				}
				res := proc.Process(cmd.Context(), workflow.NewDropFile(path, workflow.TriggerManual))
				if res.Outcome == workflow.OutcomeRetained {
					retained++
				}
				rows = append(rows, processRow(res))
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"File", "Kind", "Outcome", "Reported", "Archive key", "Took", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			if retained > 0 {
				return fmt.Errorf("%d file(s) retained", retained)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "Folder role to apply (sales or manual_order)")
	return cmd
}

func selectProcessor(components *daemon.Components, cfg *config.Config, role, path string) (*workflow.Processor, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		dir := filepath.Dir(path)
		for _, watched := range cfg.Directories() {
			if filepath.Clean(watched.Path) == dir {
				role = watched.Role
				break
			}
		}
	}
	if role == "" {
		return nil, errors.New("file is not inside a watch folder; pass --role sales or --role manual_order")
	}
	proc, ok := components.Processor(role)
	if !ok {
		return nil, fmt.Errorf("no enabled watch folder for role %q", role)
	}
	return proc, nil
}

func processRow(res workflow.Result) []string {
	errText := ""
	if res.Err != nil {
		errText = truncate(res.Err.Error(), 60)
	}
	return []string{
		res.File.Name,
		res.Kind.String(),
		string(res.Outcome),
		yesNo(res.Reported),
		res.ArchiveKey,
		res.Duration.Round(time.Millisecond).String(),
		errText,
	}
}
