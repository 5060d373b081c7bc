package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gradevault/internal/api"
	"gradevault/internal/courses"
)

func newCoursesCommand(ctx *commandContext) *cobra.Command {
	coursesCmd := &cobra.Command{
		Use:   "courses",
		Short: "Manage the course catalog",
	}

	coursesCmd.AddCommand(newCoursesListCommand(ctx))
	coursesCmd.AddCommand(newCoursesAddCommand(ctx))
	coursesCmd.AddCommand(newCoursesRenameCommand(ctx))
	return coursesCmd
}

func (c *commandContext) openCatalog() (*courses.Catalog, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	catalog := courses.NewCatalog(cfg.Courses.CatalogPath)
	if err := catalog.Load(); err != nil {
		return nil, fmt.Errorf("load course catalog: %w", err)
	}
	return catalog, nil
}

func newCoursesListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List known courses",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			list := catalog.List()
			if jsonOut {
				return writeJSON(cmd, api.CourseListResponse{Courses: api.FromCourses(list)})
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No courses in the catalog.")
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, course := range list {
				updated := ""
				if !course.UpdatedAt.IsZero() {
					updated = course.UpdatedAt.UTC().Format("2006-01-02")
				}
				rows = append(rows, []string{
					course.DisplayName(),
					course.Term,
					course.URL,
					updated,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Course", "Term", "URL", "Updated"}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit courses as JSON")
	return cmd
}

func newCoursesAddCommand(ctx *commandContext) *cobra.Command {
	var name string
	var shortName string
	var term string

	cmd := &cobra.Command{
		Use:          "add <course-url>",
		Short:        "Add or refresh a catalog entry",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[0])
			if url == "" {
				return fmt.Errorf("course url is required")
			}
			catalog, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			added := catalog.Update([]courses.Course{{
				URL:       url,
				FullName:  name,
				ShortName: shortName,
				Term:      term,
			}}, time.Now())
			if err := catalog.Save(); err != nil {
				return fmt.Errorf("save course catalog: %w", err)
			}
			if added > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", url)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %s\n", url)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Course full name (required)")
	cmd.Flags().StringVar(&shortName, "short-name", "", "Course short name")
	cmd.Flags().StringVar(&term, "term", "", "Course term, e.g. \"Fall 2025\"")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCoursesRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:          "rename <course-url> <new-name>",
		Short:        "Override a course's display name",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			url := strings.TrimSpace(args[0])
			name := strings.TrimSpace(args[1])
			if !catalog.Rename(url, name) {
				return fmt.Errorf("course %s not found in catalog", url)
			}
			if err := catalog.Save(); err != nil {
				return fmt.Errorf("save course catalog: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", url, name)
			return nil
		},
	}
}
