package commands

import (
	"skyward-backend/lib/skyward/client"

	"github.com/spf13/cobra"
)

var breakdownFlags struct {
	files  documentFlags
	format string
	req    client.GradeInfoRequest
}

func init() {
	flags := breakdownCmd.Flags()
	flags.StringVar(&breakdownFlags.files.gradeInfo, "file", "", "Read the grade info dialog from a file instead of fetching it.")
	addFormatFlag(breakdownCmd, &breakdownFlags.format)

	// a live request is described by the data-* attributes of a gradebook cell
	flags.StringVar(&breakdownFlags.req.StuID, "stu-id", "", "data-sid of the cell.")
	flags.StringVar(&breakdownFlags.req.EntityID, "entity-id", "", "data-eid of the cell.")
	flags.StringVar(&breakdownFlags.req.CorNumID, "cor-num-id", "", "data-cni of the cell.")
	flags.StringVar(&breakdownFlags.req.Track, "track", "", "data-trk of the cell.")
	flags.StringVar(&breakdownFlags.req.Section, "section", "", "data-section of the cell.")
	flags.StringVar(&breakdownFlags.req.GbID, "gb-id", "", "data-gid of the cell.")
	flags.StringVar(&breakdownFlags.req.Bucket, "bucket", "", "data-bkt of the cell, ex. \"TERM 1\".")
	flags.StringVar(&breakdownFlags.req.SubjectID, "subject-id", "", "data-subjectid of the cell.")
	flags.StringVar(&breakdownFlags.req.DialogLevel, "dialog-level", "", "data-dialoglevel of the cell.")
	flags.StringVar(&breakdownFlags.req.IsEoc, "is-eoc", "no", "data-iseoc of the cell.")

	rootCmd.AddCommand(breakdownCmd)
}

var breakdownCmd = &cobra.Command{
	Use:   "breakdown [--file <dialog.html> | --cor-num-id <id> --bucket <bucket> ...] [--format table|json|yaml]",
	Short: "Prints the categories and assignments behind one course grade.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := newService(breakdownFlags.files)
		if err != nil {
			return err
		}
		result, err := service.Breakdown(cmd.Context(), breakdownFlags.req)
		if err != nil {
			return err
		}
		return write(breakdownFlags.format, result, func() { renderBreakdown(result) })
	},
}
