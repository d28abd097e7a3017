package commands

import (
	"fmt"
	"log/slog"
	"maps"
	"skyward-backend/lib/skyward/history"
	"slices"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

var exportFlags struct {
	files documentFlags
	xlsx  string
}

func init() {
	exportCmd.Flags().StringVar(&exportFlags.files.gradebook, "file", "", "Read the gradebook page from a file instead of fetching it.")
	exportCmd.Flags().StringVar(&exportFlags.files.history, "history-file", "", "Read the academic history page from a file instead of fetching it.")
	exportCmd.Flags().StringVar(&exportFlags.xlsx, "xlsx", "grades.xlsx", "The workbook to write.")
	rootCmd.AddCommand(exportCmd)
}

func workbookHeader() []any {
	header := []any{"Course", "Terms"}
	for _, slot := range history.Columns {
		header = append(header, string(slot))
	}
	return append(header, "Final Grade", "Course ID", "Instructor", "Period", "Time")
}

func workbookRow(name string, record history.CourseHistoryRecord) []any {
	row := []any{name, record.Terms}
	for _, slot := range history.Columns {
		row = append(row, record.Get(slot))
	}
	courseId := ""
	if record.CourseID != 0 {
		courseId = fmt.Sprint(record.CourseID)
	}
	return append(row, record.FinalGrade, courseId, text(record.Instructor), text(record.Period), text(record.Time))
}

func writeSheet(f *excelize.File, sheet string, year history.Year) error {
	rows := [][]any{workbookHeader()}
	for _, name := range slices.Sorted(maps.Keys(year.Courses)) {
		rows = append(rows, workbookRow(name, year.Courses[name]))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		err = f.SetSheetRow(sheet, cell, &row)
		if err != nil {
			return err
		}
	}
	return nil
}

// Workbook lays out hist with one sheet per year, alternate track courses get a separate
// `<year> alt` sheet.
func Workbook(hist *history.AcademicHistory) (*excelize.File, error) {
	f := excelize.NewFile()

	var sheets []string
	years := map[string]history.Year{}
	for _, key := range hist.YearKeys() {
		sheets = append(sheets, key)
		years[key] = hist.Years[key]
		if alt, ok := hist.Alt[key]; ok && len(alt.Courses) > 0 {
			name := key + " " + history.AltKey
			sheets = append(sheets, name)
			years[name] = alt
		}
	}
	if len(sheets) == 0 {
		return f, nil
	}

	for i, sheet := range sheets {
		var err error
		if i == 0 {
			err = f.SetSheetName(defaultSheet, sheet)
		} else {
			_, err = f.NewSheet(sheet)
		}
		if err != nil {
			f.Close()
			return nil, err
		}
		err = writeSheet(f, sheet, years[sheet])
		if err != nil {
			f.Close()
			return nil, err
		}
	}

	// open on the most recent year
	latest, err := f.GetSheetIndex(hist.YearKeys()[len(hist.YearKeys())-1])
	if err == nil && latest >= 0 {
		f.SetActiveSheet(latest)
	}
	return f, nil
}

var exportCmd = &cobra.Command{
	Use:   "export [--file <gradebook.html> --history-file <history.html>] [--xlsx <path/to/output.xlsx>]",
	Short: "Writes the combined academic history to a spreadsheet.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := newService(exportFlags.files)
		if err != nil {
			return err
		}
		combined, err := service.Combined(cmd.Context())
		if err != nil {
			return err
		}

		f, err := Workbook(combined)
		if err != nil {
			return err
		}
		defer f.Close()

		err = f.SaveAs(exportFlags.xlsx)
		if err != nil {
			return err
		}
		slog.Info("wrote workbook", "path", exportFlags.xlsx, "years", len(combined.Years))
		return nil
	},
}
