package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"gradevault/internal/api"
	"gradevault/internal/jobstore"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect the active archival job",
	}

	jobCmd.AddCommand(newJobFilesCommand(ctx))
	return jobCmd
}

func newJobFilesCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:          "files",
		Short:        "List the active job's file records",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, err := fetchJobFiles(ctx)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, api.FileListResponse{Files: files})
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No file records.")
				return nil
			}

			rows := make([][]string, 0, len(files))
			for _, file := range files {
				detail := file.BlobSHA
				if file.ErrorMessage != "" {
					detail = file.ErrorMessage
				}
				rows = append(rows, []string{
					strconv.Itoa(file.Seq),
					file.Status,
					file.Path,
					strconv.Itoa(file.Attempts),
					detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Status", "Path", "Tries", "Blob / Error"}, rows, 1, 4))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit file records as JSON")
	return cmd
}

// fetchJobFiles asks the daemon API first and falls back to the job
// store when the daemon is unreachable.
func fetchJobFiles(ctx *commandContext) ([]api.FileView, error) {
	var resp api.FileListResponse
	if err := ctx.apiGet("/api/job/files", &resp); err == nil {
		return resp.Files, nil
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := jobstore.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()

	cmdCtx := context.Background()
	job, err := store.ActiveJob(cmdCtx)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("no active job")
	}
	files, err := store.Files(cmdCtx, job.ID)
	if err != nil {
		return nil, err
	}
	return api.FromFiles(files), nil
}
