package commands

import (
	"fmt"
	"log/slog"
	"maps"
	"skyward-backend/lib/skyward/gradebook"
	"skyward-backend/lib/textutil"
	"slices"

	"github.com/spf13/cobra"
)

// courseMatchThreshold is the lowest similarity --course accepts.
const courseMatchThreshold = 0.8

var gradesFlags struct {
	files  documentFlags
	format string
	course string
}

var historyFlags struct {
	files  documentFlags
	format string
}

var reportFlags struct {
	files  documentFlags
	format string
}

var combinedFlags struct {
	files  documentFlags
	format string
}

func init() {
	gradesCmd.Flags().StringVar(&gradesFlags.files.gradebook, "file", "", "Read the gradebook page from a file instead of fetching it.")
	gradesCmd.Flags().StringVar(&gradesFlags.course, "course", "", "Only show the course closest to this name.")
	addFormatFlag(gradesCmd, &gradesFlags.format)

	historyCmd.Flags().StringVar(&historyFlags.files.history, "file", "", "Read the academic history page from a file instead of fetching it.")
	addFormatFlag(historyCmd, &historyFlags.format)

	reportCmd.Flags().StringVar(&reportFlags.files.gradebook, "file", "", "Read the gradebook page from a file instead of fetching it.")
	reportCmd.Flags().StringVar(&reportFlags.files.history, "history-file", "", "Read the academic history page from a file instead of fetching it.")
	addFormatFlag(reportCmd, &reportFlags.format)

	combinedCmd.Flags().StringVar(&combinedFlags.files.gradebook, "file", "", "Read the gradebook page from a file instead of fetching it.")
	combinedCmd.Flags().StringVar(&combinedFlags.files.history, "history-file", "", "Read the academic history page from a file instead of fetching it.")
	addFormatFlag(combinedCmd, &combinedFlags.format)

	rootCmd.AddCommand(gradesCmd, historyCmd, reportCmd, combinedCmd)
}

// filterCourse keeps every course of record whose name contains name, falling back to the
// single course closest to it.
func filterCourse(record gradebook.CourseRecord, name string) (gradebook.CourseRecord, error) {
	query := []string{textutil.NormalizeName(name)}
	contained := gradebook.CourseRecord{}
	for course, buckets := range record {
		if textutil.MatchName(course, query) {
			contained[course] = buckets
		}
	}
	if len(contained) > 0 {
		return contained, nil
	}

	best, similarity, ok := textutil.Closest(name, slices.Sorted(maps.Keys(record)))
	if !ok || similarity < courseMatchThreshold {
		return nil, fmt.Errorf("no course matches %q", name)
	}
	slog.Debug("matched course", "query", name, "course", best, "similarity", similarity)
	return gradebook.CourseRecord{best: record[best]}, nil
}

var gradesCmd = &cobra.Command{
	Use:   "grades [--file <gradebook.html>] [--course <name>] [--format table|json|yaml]",
	Short: "Prints the current grade of every course and bucket.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := newService(gradesFlags.files)
		if err != nil {
			return err
		}
		record, err := service.Grades(cmd.Context())
		if err != nil {
			return err
		}
		if gradesFlags.course != "" {
			record, err = filterCourse(record, gradesFlags.course)
			if err != nil {
				return err
			}
		}
		return write(gradesFlags.format, record, func() { renderGrades(record) })
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [--file <history.html>] [--format table|json|yaml]",
	Short: "Prints the academic history grouped by year.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := newService(historyFlags.files)
		if err != nil {
			return err
		}
		hist, err := service.History(cmd.Context())
		if err != nil {
			return err
		}
		return write(historyFlags.format, hist, func() { renderHistory(hist) })
	},
}

var reportCmd = &cobra.Command{
	Use:   "report [--file <gradebook.html> --history-file <history.html>] [--format table|json|yaml]",
	Short: "Prints the current period report of every course.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := newService(reportFlags.files)
		if err != nil {
			return err
		}
		rep, err := service.Report(cmd.Context())
		if err != nil {
			return err
		}
		return write(reportFlags.format, rep, func() { renderReport(rep) })
	},
}

var combinedCmd = &cobra.Command{
	Use:   "combined [--file <gradebook.html> --history-file <history.html>] [--format table|json|yaml]",
	Short: "Prints the academic history with the current year taken from the report.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := newService(combinedFlags.files)
		if err != nil {
			return err
		}
		combined, err := service.Combined(cmd.Context())
		if err != nil {
			return err
		}
		return write(combinedFlags.format, combined, func() { renderHistory(combined) })
	},
}
