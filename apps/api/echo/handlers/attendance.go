package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"classtrack/core"
	"classtrack/core/attendance"
	"classtrack/core/student"
)

type attendanceApi struct {
	service    *attendance.Service
	studentSvc *student.Service
	mailSvc    core.EmailService
	conf       *core.Config
}

func RegisterAttendanceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *attendance.Service,
	studentSvc *student.Service,
	mailSvc core.EmailService,
	conf *core.Config,
) {
	api := attendanceApi{service: svc, studentSvc: studentSvc, mailSvc: mailSvc, conf: conf}

	ag := g.Group("/attendance", jwt)
	ag.POST("", api.mark, staffMiddleware)
	ag.POST("/batch", api.markBatch, staffMiddleware)
	ag.GET("/defaulters", api.defaulters, staffMiddleware)
	ag.POST("/defaulters/notify", api.notifyDefaulters, hodMiddleware)
	ag.GET("/sections/:class_name", api.sectionReport, staffMiddleware)
	ag.GET("/students/:roll_no", api.studentReport, selfOrStaffMiddleware)
	ag.GET("/students/:roll_no/day", api.studentDay, selfOrStaffMiddleware)
}

type MarkRequest struct {
	RollNo  string            `json:"roll_no" validate:"required,max=20,rollno"`
	Date    string            `json:"date" validate:"required,isodate"`
	Period  int               `json:"period" validate:"required,min=1"`
	Subject string            `json:"subject" validate:"omitempty,max=50"`
	Status  attendance.Status `json:"status" validate:"required,oneof=P A"`
}

// mark records one student's status for one period. The student must exist;
// the ledger insert and the summary increment commit together.
func (api *attendanceApi) mark(ctx echo.Context) error {
	data := new(MarkRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if ok, err := api.studentSvc.Exists(reqCtx, data.RollNo); err != nil {
		return err
	} else if !ok {
		return student.ErrNotFound
	}

	entry, err := api.service.MarkSingle(reqCtx, data.RollNo, data.Date, data.Period, data.Subject, data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, entry)
}

type BatchMarkRequest struct {
	ClassName string   `json:"class_name" validate:"required,max=50"`
	Date      string   `json:"date" validate:"required,isodate"`
	Period    int      `json:"period" validate:"required,min=1"`
	Subject   string   `json:"subject" validate:"omitempty,max=50"`
	Absentees []string `json:"absentees" validate:"dive,max=20"`
}

// markBatch marks a whole section for one period: absentees get A, the rest
// of the roster gets P. An unknown section (empty roster) is a 404.
func (api *attendanceApi) markBatch(ctx echo.Context) error {
	data := new(BatchMarkRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	roster, err := api.studentSvc.Roster(reqCtx, data.ClassName)
	if err != nil {
		return err
	}
	if len(roster) == 0 {
		return echo.NewHTTPError(http.StatusNotFound,
			fmt.Sprintf("no students found in section %s", core.CleanString(data.ClassName)))
	}

	res, err := api.service.MarkBatch(reqCtx, data.ClassName, data.Date, data.Period, data.Subject, roster, data.Absentees)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

// SummaryResponse is a student's semester aggregate plus the derived
// percentage and standing.
type SummaryResponse struct {
	Student        student.Student `json:"student"`
	TotalPeriods   int             `json:"total_periods"`
	PresentPeriods int             `json:"present_periods"`
	Percentage     float64         `json:"percentage"`
	Standing       string          `json:"standing"` // NO RECORDS | DEFAULTER | REGULAR
}

func newSummaryResponse(s attendance.StudentSummary) SummaryResponse {
	standing := "REGULAR"
	if !s.HasRecords() {
		standing = "NO RECORDS"
	} else if s.IsDefaulter() {
		standing = "DEFAULTER"
	}
	return SummaryResponse{
		Student:        s.Student,
		TotalPeriods:   s.TotalPeriods,
		PresentPeriods: s.PresentPeriods,
		Percentage:     s.Percentage(),
		Standing:       standing,
	}
}

type StudentReportResponse struct {
	Summary SummaryResponse    `json:"summary"`
	Entries []attendance.Entry `json:"entries"`
}

// studentReport returns a student's overall summary with the date-wise
// ledger breakdown.
func (api *attendanceApi) studentReport(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	rollNo := ctx.Param("roll_no")

	summary, err := api.service.OverallSummary(reqCtx, rollNo)
	if err != nil {
		return err
	}
	entries, err := api.service.DateWiseBreakdown(reqCtx, rollNo)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, StudentReportResponse{
		Summary: newSummaryResponse(summary),
		Entries: entries,
	})
}

type DayResponse struct {
	RollNo  string             `json:"roll_no"`
	Date    attendance.Date    `json:"date"`
	Entries []attendance.Entry `json:"entries"`
	Message string             `json:"message,omitempty"`
}

// studentDay returns a student's per-period detail for one date
// (?date=YYYY-MM-DD, default today).
func (api *attendanceApi) studentDay(ctx echo.Context) error {
	rollNo := ctx.Param("roll_no")
	dateStr := ctx.QueryParam("date")

	entries, err := api.service.DayBreakdown(ctx.Request().Context(), rollNo, dateStr)
	if err != nil {
		return err
	}

	date := attendance.Today()
	if dateStr != "" {
		date, _ = attendance.ParseDate(core.CleanString(dateStr))
	}
	res := DayResponse{RollNo: core.CleanString(rollNo), Date: date, Entries: entries}
	if len(entries) == 0 {
		res.Message = fmt.Sprintf("no attendance recorded for %s on %s", res.RollNo, date)
	}
	return ctx.JSON(http.StatusOK, res)
}

type SectionReportResponse struct {
	attendance.SectionReport
	Message string `json:"message,omitempty"`
}

// sectionReport renders a section view: ?mode=today (default), overall, or
// date (with ?date=YYYY-MM-DD).
func (api *attendanceApi) sectionReport(ctx echo.Context) error {
	mode := attendance.SectionMode(ctx.QueryParam("mode"))
	if mode == "" {
		mode = attendance.SectionToday
	}

	report, err := api.service.Report(ctx.Request().Context(), ctx.Param("class_name"), mode, ctx.QueryParam("date"))
	if err != nil {
		return err
	}

	res := SectionReportResponse{SectionReport: report}
	if len(report.Rows) == 0 && len(report.Overall) == 0 {
		if report.Date != nil {
			res.Message = fmt.Sprintf("no attendance recorded for %s on %s", report.ClassName, report.Date)
		} else {
			res.Message = fmt.Sprintf("no students found in section %s", report.ClassName)
		}
	}
	return ctx.JSON(http.StatusOK, res)
}

type DefaultersResponse struct {
	Threshold  float64           `json:"threshold"`
	Defaulters []SummaryResponse `json:"defaulters"`
	Message    string            `json:"message,omitempty"`
}

func (api *attendanceApi) defaulterList(ctx echo.Context) ([]attendance.StudentSummary, DefaultersResponse, error) {
	defaulters, err := api.service.Defaulters(ctx.Request().Context())
	if err != nil {
		return nil, DefaultersResponse{}, err
	}

	res := DefaultersResponse{
		Threshold:  attendance.DefaulterThreshold,
		Defaulters: make([]SummaryResponse, 0, len(defaulters)),
	}
	for _, s := range defaulters {
		res.Defaulters = append(res.Defaulters, newSummaryResponse(s))
	}
	if len(defaulters) == 0 {
		res.Message = "no defaulters; everyone is at or above the threshold"
	}
	return defaulters, res, nil
}

func (api *attendanceApi) defaulters(ctx echo.Context) error {
	_, res, err := api.defaulterList(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

// notifyDefaulters emails the defaulter digest to the configured report
// recipient and echoes the list back.
func (api *attendanceApi) notifyDefaulters(ctx echo.Context) error {
	defaulters, res, err := api.defaulterList(ctx)
	if err != nil {
		return err
	}
	if msg := attendance.DefaulterDigest(defaulters, api.conf.ReportRecipient()); msg != nil {
		api.mailSvc.SendMessages(msg)
	}
	return ctx.JSON(http.StatusOK, res)
}
