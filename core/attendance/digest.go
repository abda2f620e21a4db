package attendance

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"classtrack/core"
)

// DefaulterDigest renders the defaulter list as a plain-text email with a CSV
// attachment, addressed to the department's report recipient. Returns nil
// when there is nothing to report.
func DefaulterDigest(defaulters []StudentSummary, recipient mail.Address) *core.EmailMessage {
	if len(defaulters) == 0 {
		return nil
	}

	var body strings.Builder
	body.WriteString(fmt.Sprintf(
		"%d student(s) are below the %.0f%% attendance threshold:\n\n", len(defaulters), DefaulterThreshold))
	for _, s := range defaulters {
		body.WriteString(fmt.Sprintf("  %-12s %-24s %-10s %5.1f%% (%d/%d)\n",
			s.Student.RollNo, s.Student.Name, s.Student.ClassName,
			s.Percentage(), s.PresentPeriods, s.TotalPeriods))
	}
	body.WriteString("\nA detailed CSV is attached.\n")

	return &core.EmailMessage{
		To:          []mail.Address{recipient},
		Subject:     "Attendance defaulter report",
		BodyStr:     body.String(),
		Attachments: []core.Attachment{defaulterCSV(defaulters)},
	}
}

func defaulterCSV(defaulters []StudentSummary) core.Attachment {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)

	_ = w.Write([]string{"roll_no", "name", "class", "department", "total_periods", "present_periods", "percentage"})
	for _, s := range defaulters {
		_ = w.Write([]string{
			s.Student.RollNo,
			s.Student.Name,
			s.Student.ClassName,
			s.Student.Department,
			strconv.Itoa(s.TotalPeriods),
			strconv.Itoa(s.PresentPeriods),
			fmt.Sprintf("%.2f", s.Percentage()),
		})
	}
	w.Flush()

	return core.Attachment{
		Content:     buf,
		ContentType: "text/csv",
		Filename:    "defaulters.csv",
	}
}
