package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gradevault/internal/engine"
	"gradevault/internal/enumerator"
	"gradevault/internal/jobstore"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	var courseID string
	var courseName string
	var repoName string
	var visibility string

	cmd := &cobra.Command{
		Use:          "archive <manifest.json>",
		Short:        "Start archiving a course from a manifest file",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch visibility {
			case "", "private", "public":
			default:
				return fmt.Errorf("invalid visibility %q (expected private or public)", visibility)
			}

			source := &enumerator.ManifestFile{Path: strings.TrimSpace(args[0])}
			entries, err := source.Enumerate(cmd.Context(), courseID)
			if err != nil {
				return err
			}

			return ctx.withEngine(func(eng *engine.Engine, _ *jobstore.Store) error {
				job, err := eng.StartJob(cmd.Context(), engine.JobParams{
					CourseID:   courseID,
					CourseName: courseName,
					RepoName:   repoName,
					Visibility: visibility,
				}, entries)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job %d started: %d files -> %s\n", job.ID, len(entries), job.RepoName)
				fmt.Fprintln(out, "The running daemon picks the job up on its next poll.")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&courseID, "course-id", "", "Course identifier recorded on the job")
	cmd.Flags().StringVar(&courseName, "course-name", "", "Course display name (required)")
	cmd.Flags().StringVar(&repoName, "repo-name", "", "Repository name (derived from the course name when empty)")
	cmd.Flags().StringVar(&visibility, "visibility", "private", "Repository visibility: private or public")
	_ = cmd.MarkFlagRequired("course-name")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:          "cancel",
		Short:        "Cancel the active archival job",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withEngine(func(eng *engine.Engine, _ *jobstore.Store) error {
				if err := eng.Cancel(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Job cancelled; in-flight work is discarded at the next checkpoint.")
				return nil
			})
		},
	}
}
