package engine

import (
	"fmt"
	"strings"
	"time"

	"gradevault/internal/jobstore"
)

// renderREADME produces the README.md committed at the root of every
// course archive.
func renderREADME(job *jobstore.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", job.CourseName)
	b.WriteString("Archived graded submissions from Gradescope.\n\n")
	if job.CourseID != "" {
		fmt.Fprintf(&b, "- Course: %s\n", job.CourseID)
	}
	fmt.Fprintf(&b, "- Archived: %s\n", time.Now().UTC().Format("2006-01-02"))
	b.WriteString("\nGenerated by GradeVault.\n")
	return b.String()
}
