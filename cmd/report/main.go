// Command report generates a shop report from the command line.
//
// Usage:
//
//	report [flags]            generate one report
//	report daily              run the scheduled daily report now
//	report monthly            run the scheduled monthly report now
//	report backup             archive the report catalog database
//
// Without -upload the report is written to REPORTS_DIR only.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ararat/reports/internal/config"
	"github.com/ararat/reports/internal/di"
	"github.com/ararat/reports/internal/modules/analytics"
	"github.com/ararat/reports/internal/modules/reports"
	"github.com/ararat/reports/internal/scheduler"
	"github.com/ararat/reports/pkg/logger"
)

// defaultPeriod buckets sales performance by month unless -period says otherwise.
const defaultPeriod = "month"

type options struct {
	reportType string
	period     string
	shop       string
	startDate  string
	endDate    string
	monthYear  string
	allData    bool
	upload     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.reportType, "type", "", "Report type (daily, monthly, yearly, custom)")
	flag.StringVar(&opts.period, "period", defaultPeriod, "Sales period (day, week, month, year, or all for the report type's own)")
	flag.StringVar(&opts.shop, "shop", "all", "Shop ID, or all")
	flag.StringVar(&opts.startDate, "start-date", "", "Start date (YYYY-MM-DD)")
	flag.StringVar(&opts.endDate, "end-date", "", "End date (YYYY-MM-DD)")
	flag.StringVar(&opts.monthYear, "month-year", "", "Monthly report for a month (YYYY-MM)")
	flag.BoolVar(&opts.allData, "all-data", false, "Ignore dates and report on every record")
	flag.BoolVar(&opts.upload, "upload", false, "Publish the report to object storage")
	flag.Usage = printUsage
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if !opts.upload {
		cfg.Storage.Bucket = ""
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})
	logger.SetGlobalLogger(log)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Store.Timeout+10*time.Minute)
	defer cancel()

	container, jobs, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close(log)

	if args := flag.Args(); len(args) > 0 {
		job, err := jobFor(args[0], jobs)
		if err != nil {
			printUsage()
			os.Exit(2)
		}
		if err := scheduler.New(log).RunNow(job); err != nil {
			log.Error().Err(err).Str("job", job.Name()).Msg("Job failed")
			os.Exit(1)
		}
		return
	}

	req, err := buildRequest(opts, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	res, err := container.ReportService.Generate(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("Report generation failed")
		os.Exit(1)
	}
	printResult(res)
}

func jobFor(name string, jobs *di.JobInstances) (scheduler.Job, error) {
	switch strings.ToLower(name) {
	case "daily":
		return jobs.DailyReport, nil
	case "monthly":
		return jobs.MonthlyReport, nil
	case "backup":
		return jobs.BackupCatalog, nil
	default:
		return nil, fmt.Errorf("unknown command %q", name)
	}
}

// buildRequest maps the flags onto a report request. Window precedence:
// -all-data, then -start-date/-end-date, then -month-year, else the last month up to today.
func buildRequest(opts options, now time.Time) (reports.Request, error) {
	req := reports.Request{ShopID: opts.shop}

	if p := strings.ToLower(strings.TrimSpace(opts.period)); p != "" && p != "all" {
		g, err := analytics.ParseGranularity(p)
		if err != nil {
			return req, err
		}
		req.Period = g
	}

	t, err := reports.ParseReportType(opts.reportType)
	if err != nil {
		return req, err
	}
	req.Type = t

	switch {
	case opts.allData:
		req.Type = reports.TypeCustom
	case opts.startDate != "" || opts.endDate != "":
		if opts.startDate == "" || opts.endDate == "" {
			return req, errors.New("-start-date and -end-date must be given together")
		}
		if req.StartDate, err = reports.ParseDate(opts.startDate); err != nil {
			return req, err
		}
		if req.EndDate, err = reports.ParseDate(opts.endDate); err != nil {
			return req, err
		}
	case opts.monthYear != "":
		start, end, err := reports.ParseMonth(opts.monthYear)
		if err != nil {
			return req, err
		}
		req.Type = reports.TypeMonthly
		req.StartDate, req.EndDate = &start, &end
	case opts.reportType == "":
		today := now.UTC().Truncate(24 * time.Hour)
		start := today.AddDate(0, -1, 0)
		req.StartDate, req.EndDate = &start, &today
	default:
		req.AsOf = now
	}

	return req, req.Validate()
}

func printResult(res *reports.Result) {
	s := res.Summary
	fmt.Printf("Report:      %s\n", res.Filename)
	fmt.Printf("Type:        %s (shop %s)\n", res.Type, res.ShopID)
	fmt.Printf("Window:      %s\n", res.Window)
	fmt.Printf("Records:     %d operations, %d deposits, %d clients, %d movements\n",
		s.Operations, s.Deposits, s.Clients, s.Movements)
	if s.SalesTotal != nil {
		fmt.Printf("Sales total: %s\n", s.SalesTotal.StringFixed(2))
	}
	fmt.Printf("Local file:  %s\n", res.LocalPath)
	fmt.Printf("Download:    %s\n", res.DownloadURL)
	if res.UploadErr != nil {
		fmt.Printf("Upload failed: %v\n", res.UploadErr)
	}
	if s.Operations == 0 && s.Deposits == 0 && s.Movements == 0 {
		fmt.Println("Warning: no data found for this window")
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: report [flags] [daily|monthly|backup]

Commands:
  daily      Generate yesterday's report for every shop
  monthly    Generate last month's report for every shop
  backup     Archive the report catalog database

Flags:
`)
	flag.PrintDefaults()
}
