package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"gradevault/internal/api"
	"gradevault/internal/jobstore"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:          "status",
		Short:        "Show daemon and active job status",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, reachable := fetchDaemonStatus(ctx)
			if jsonOut {
				return writeJSON(cmd, status)
			}
			renderStatus(cmd.OutOrStdout(), status, reachable)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit status as JSON")
	return cmd
}

// fetchDaemonStatus asks the daemon API first and falls back to
// reading the job store directly when the daemon is unreachable.
func fetchDaemonStatus(ctx *commandContext) (api.DaemonStatus, bool) {
	var status api.DaemonStatus
	if err := ctx.apiGet("/api/status", &status); err == nil {
		return status, true
	}
	return localDaemonStatus(ctx), false
}

func localDaemonStatus(ctx *commandContext) api.DaemonStatus {
	var status api.DaemonStatus
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return status
	}
	store, err := jobstore.Open(cfg)
	if err != nil {
		return status
	}
	defer store.Close()
	status.JobDBPath = store.Path()

	cmdCtx := context.Background()
	job, err := store.ActiveJob(cmdCtx)
	if err != nil || job == nil {
		return status
	}
	stats, err := store.Stats(cmdCtx, job.ID)
	if err != nil {
		return status
	}
	view := api.FromJob(job, stats)
	status.ActiveJob = &view
	return status
}

func renderStatus(out io.Writer, status api.DaemonStatus, reachable bool) {
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderSectionHeader("GradeVault", colorize))
	switch {
	case reachable && status.Running:
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
	case reachable:
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "reachable but not started", colorize))
	default:
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "not reachable; showing local state", colorize))
	}
	if status.JobDBPath != "" {
		fmt.Fprintln(out, renderStatusLine("Job DB", statusInfo, status.JobDBPath, colorize))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSectionHeader("Active Job", colorize))
	job := status.ActiveJob
	if job == nil {
		fmt.Fprintln(out, renderStatusLine("Job", statusInfo, "none", colorize))
		return
	}

	course := job.CourseName
	if job.CourseID != "" {
		course = fmt.Sprintf("%s (%s)", course, job.CourseID)
	}
	fmt.Fprintln(out, renderStatusLine("Course", statusInfo, course, colorize))

	repo := job.RepoName
	if job.Owner != "" {
		repo = job.Owner + "/" + repo
	}
	if job.Branch != "" {
		repo = repo + " @ " + job.Branch
	}
	fmt.Fprintln(out, renderStatusLine("Repo", statusInfo, repo, colorize))
	fmt.Fprintln(out, renderStatusLine("Status", statusKindForJob(job.Status), job.Status, colorize))
	fmt.Fprintln(out, renderStatusLine("Step", statusInfo,
		fmt.Sprintf("%s (%.1f%%)", job.Progress.Step, job.Progress.Percent), colorize))

	files := job.Progress.Files
	fmt.Fprintln(out, renderStatusLine("Files", statusInfo,
		fmt.Sprintf("%d done, %d skipped, %d failed, %d pending (of %d)",
			files.Done, files.Skipped, files.Errored, files.Pending+files.InProgress, files.Total), colorize))

	if job.CommitSHA != "" {
		fmt.Fprintln(out, renderStatusLine("Commit", statusOK, job.CommitSHA, colorize))
	}
	if job.ErrorMessage != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, job.ErrorMessage, colorize))
	}
}
