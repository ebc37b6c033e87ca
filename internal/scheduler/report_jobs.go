package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ararat/reports/internal/domain"
	"github.com/ararat/reports/internal/modules/reports"
)

// defaultJobTimeout bounds one scheduled generation.
const defaultJobTimeout = 10 * time.Minute

// Generator runs the report pipeline.
type Generator interface {
	Generate(ctx context.Context, req reports.Request) (*reports.Result, error)
}

type reportJob struct {
	generator Generator
	timeout   time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

func (j *reportJob) generate(req reports.Request) error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	res, err := j.generator.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("%s report failed: %w", req.Type, err)
	}
	j.log.Info().
		Str("filename", res.Filename).
		Str("download_url", res.DownloadURL).
		Bool("remote", res.Remote).
		Msg("Scheduled report generated")
	return nil
}

// DailyReportJob generates the report of the previous day for every shop.
type DailyReportJob struct {
	reportJob
}

// NewDailyReportJob creates a new DailyReportJob
func NewDailyReportJob(generator Generator, log zerolog.Logger) *DailyReportJob {
	return &DailyReportJob{reportJob{
		generator: generator,
		timeout:   defaultJobTimeout,
		now:       time.Now,
		log:       log.With().Str("job", "daily_report").Logger(),
	}}
}

// Name returns the job name
func (j *DailyReportJob) Name() string {
	return "daily_report"
}

// Run generates yesterday's report
func (j *DailyReportJob) Run() error {
	yesterday := j.now().UTC().AddDate(0, 0, -1)
	return j.generate(reports.Request{
		Type:   reports.TypeDaily,
		ShopID: domain.ShopAll,
		AsOf:   yesterday,
	})
}

// MonthlyReportJob generates the report of the previous calendar month for every shop.
type MonthlyReportJob struct {
	reportJob
}

// NewMonthlyReportJob creates a new MonthlyReportJob
func NewMonthlyReportJob(generator Generator, log zerolog.Logger) *MonthlyReportJob {
	return &MonthlyReportJob{reportJob{
		generator: generator,
		timeout:   defaultJobTimeout,
		now:       time.Now,
		log:       log.With().Str("job", "monthly_report").Logger(),
	}}
}

// Name returns the job name
func (j *MonthlyReportJob) Name() string {
	return "monthly_report"
}

// Run generates last month's report
func (j *MonthlyReportJob) Run() error {
	start, end, err := PreviousMonth(j.now())
	if err != nil {
		return err
	}
	return j.generate(reports.Request{
		Type:      reports.TypeMonthly,
		ShopID:    domain.ShopAll,
		StartDate: &start,
		EndDate:   &end,
	})
}

// PreviousMonth returns the first and last day of the month before now.
func PreviousMonth(now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return reports.ParseMonth(firstOfMonth.AddDate(0, 0, -1).Format("2006-01"))
}
