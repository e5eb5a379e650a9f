// Command geocover runs the coverage engine on local files without the HTTP
// server.
//
//	geocover cover -i region.geojson -o cells.csv -f csv -p 6
//	geocover cells -i cells.csv -o cells.geojson
//	geocover budget -k 1000 -u 8000 -w 2 -m 1.5
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/voxelbrain/goptions"

	"geocover/internal/config"
	"geocover/internal/geo"
	"geocover/internal/logger"
	"geocover/internal/services"
	"geocover/pkg/budget"
)

func main() {
	log := logger.Setup()
	cfg := config.Load()

	options := struct {
		Help goptions.Help `goptions:"-h, --help, description='Show this help'"`

		goptions.Verbs
		Cover struct {
			InputFile  string  `goptions:"-i, --input, obligatory, description='GeoJSON region (FeatureCollection, Feature or geometry)'"`
			OutputFile string  `goptions:"-o, --output, description='Output file (stdout when empty)'"`
			Format     string  `goptions:"-f, --format, description='geojson, csv or codes'"`
			Precision  int     `goptions:"-p, --precision, description='Geohash precision 1-12'"`
			Step       float64 `goptions:"-s, --step, description='Grid-scan step in degrees (0 picks one from the precision)'"`
			Mode       string  `goptions:"-m, --mode, description='boundary-touching or centroid-only'"`
			Strategy   string  `goptions:"-t, --strategy, description='grid-scan or subdivide'"`
			Workers    int     `goptions:"-w, --workers, description='Parallel scan workers'"`
		} `goptions:"cover"`
		Cells struct {
			InputFile  string `goptions:"-i, --input, obligatory, description='CSV file with a geohash column'"`
			OutputFile string `goptions:"-o, --output, description='Output GeoJSON file (stdout when empty)'"`
		} `goptions:"cells"`
		Budget struct {
			TargetKm   float64 `goptions:"-k, --km, obligatory, description='Target kilometres'"`
			PricePerKm float64 `goptions:"-u, --unit-price, obligatory, description='Incentive per kilometre (IDR)'"`
			Workers    int     `goptions:"-w, --workers, obligatory, description='Number of field workers'"`
			Months     float64 `goptions:"-m, --months, obligatory, description='Campaign length in months'"`
		} `goptions:"budget"`
	}{}
	options.Cover.Format = "geojson"
	options.Cover.Precision = cfg.Coverage.Precision
	options.Cover.Step = cfg.Coverage.ScanStep
	options.Cover.Mode = string(cfg.Coverage.Mode)
	options.Cover.Strategy = string(cfg.Coverage.Strategy)
	options.Cover.Workers = cfg.Coverage.Workers
	goptions.ParseAndFail(&options)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch options.Verbs {
	case "cover":
		o := options.Cover
		c := geo.CoverageConfig{
			Precision: o.Precision,
			ScanStep:  o.Step,
			Mode:      geo.Mode(o.Mode),
			Strategy:  geo.Strategy(o.Strategy),
			Workers:   o.Workers,
		}
		if o.Precision != cfg.Coverage.Precision && o.Step == cfg.Coverage.ScanStep {
			c.ScanStep = 0
		}
		err = runCover(ctx, o.InputFile, o.OutputFile, o.Format, c)
	case "cells":
		err = runCells(options.Cells.InputFile, options.Cells.OutputFile)
	case "budget":
		b := options.Budget
		err = runBudget(cfg, budget.Input{
			TargetKm:   b.TargetKm,
			PricePerKm: b.PricePerKm,
			Workers:    b.Workers,
			Months:     b.Months,
		})
	default:
		goptions.PrintHelp()
		os.Exit(2)
	}
	if err != nil {
		log.Error("geocover_failed", "verb", string(options.Verbs), "err", err)
		os.Exit(1)
	}
}

func runCover(ctx context.Context, input, output, format string, cfg geo.CoverageConfig) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	in, err := geo.ParseRegionInput(data)
	if err != nil {
		return err
	}

	res, err := services.NewCoverageService(nil, nil, cfg).Cover(ctx, in, cfg)
	if err != nil {
		return err
	}
	if res.Warning != "" {
		logger.L().Warn("cover_empty", "input", input, "warning", res.Warning)
	}

	return withOutput(output, func(w io.Writer) error {
		switch strings.ToLower(format) {
		case "csv":
			rows, failures := geo.ToTable(res.Codes)
			logSkipped(failures)
			return geo.WriteCSV(w, rows)
		case "codes":
			for _, code := range res.Codes {
				if _, err := fmt.Fprintln(w, code); err != nil {
					return err
				}
			}
			return nil
		case "geojson", "":
			fc, failures := geo.ToFeatureCollection(res.Codes)
			logSkipped(failures)
			return writeJSON(w, fc)
		}
		return fmt.Errorf("unknown format %q", format)
	})
}

func runCells(input, output string) error {
	f, err := os.Open(input)
	if err != nil {
		return err
	}
	defer f.Close()

	codes, err := geo.ReadCodesCSV(f)
	if err != nil {
		return err
	}
	fc, failures := services.NewCellService().GeoJSON(codes)
	logSkipped(failures)
	return withOutput(output, func(w io.Writer) error {
		return writeJSON(w, fc)
	})
}

func runBudget(cfg *config.Config, in budget.Input) error {
	calc, err := budget.NewCalculator(budget.Rates{
		InsurancePerWorkerMonth: cfg.Budget.InsurancePerWorkerMonth,
		DataPlanPerWorkerMonth:  cfg.Budget.DataPlanPerWorkerMonth,
		MiscRate:                cfg.Budget.MiscRate,
	})
	if err != nil {
		return err
	}
	f, err := calc.Forecast(in)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, f)
}

func logSkipped(failures []geo.CellFailure) {
	for _, fail := range failures {
		logger.L().Warn("cell_skipped", "row", fail.Index, "geohash", fail.Geohash, "reason", fail.Reason)
	}
}

// withOutput runs write against the named file, or stdout when name is
// empty. The file is removed again if write fails.
func withOutput(name string, write func(io.Writer) error) error {
	if name == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(name)
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
