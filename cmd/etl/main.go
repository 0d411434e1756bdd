package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"moviesetl/internal/config"
	"moviesetl/internal/metrics"
	"moviesetl/internal/metrics/datadog"
	"moviesetl/internal/metrics/prompush"
	"moviesetl/internal/pipeline"
	"moviesetl/internal/storage"

	// register all backends with the storage factory.
	// config specifies which to use but we build in support for all of them.
	_ "moviesetl/internal/storage/all"
)

// main is the entry point for the ETL binary. It loads the pipeline config,
// optionally initializes a metrics backend, and executes the load run.
//
// The work happens in run so that the metrics flush and repository close
// defers fire before the process exits on failure paths.
func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("etl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		validate          bool
	)

	fs.StringVar(&cfgPath, "config", "configs/pipelines/movies.json", "pipeline config JSON path")
	fs.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (pushgateway, datadog, none)")
	fs.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	fs.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := fs.Bool("v", false, "enable verbose logs")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	p, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	issues := config.ValidatePipeline(p)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("Configuration is invalid: %v", cfgPath)
		return 1
	}

	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		return 0
	}

	jobName := p.Job
	if jobName == "" {
		jobName = "movies_etl"
	}

	// Decide metrics backend: flag → env → default.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		// Decide Pushgateway URL: flag → env → default.
		gwURL := pushGatewayURLFlg
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}

		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
		} else {
			log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, jobName)
			metrics.SetBackend(b)
			defer func() {
				if err := metrics.Flush(); err != nil {
					log.Printf("metrics: flush error: %v", err)
				}
			}()
		}

	case "datadog":
		// The Datadog backend buffers metrics, submits periodically and one
		// final time at Close. Long runs get a real time series instead of a
		// single spike at the end.
		extraTags := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))

		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: jobName,
			Tags:    extraTags,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			log.Printf("metrics: backend=%v job_name=%v tags=%v", backendName, jobName, extraTags)
			metrics.SetBackend(b)
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}

	case "", "none":
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	ctx := context.Background()
	start := time.Now()

	if *verbose {
		log.Printf("pipeline: job=%s source=%s parser=%s storage=%s",
			jobName, p.Source.File.Path, p.Parser.Kind, p.Storage.Kind)
	}

	// DSNs commonly carry credentials via ${VAR} references.
	repo, err := storage.New(ctx, storage.Config{
		Kind: p.Storage.Kind,
		DSN:  os.ExpandEnv(p.Storage.DSN),
	})
	if err != nil {
		log.Printf("storage: %v", err)
		return 1
	}
	defer repo.Close()

	eng := &pipeline.Engine{Repo: repo, Logger: log.Default()}
	sum, err := eng.Run(ctx, p)
	if err != nil {
		log.Printf("run: state=%s err=%v", sum.State, err)
		return 1
	}

	log.Printf("run ok state=%s read=%d transformed=%d inserted=%d failed=%d persons=%d genres=%d links=%d duration=%s",
		sum.State, sum.RowsRead, sum.RowsTransformed, sum.MoviesInserted, sum.RowsFailed,
		sum.Persons, sum.Genres,
		sum.DirectorLinks+sum.StarLinks+sum.GenreLinks,
		time.Since(start).Truncate(time.Millisecond))
	return 0
}

func loadConfig(path string) (config.Pipeline, error) {
	var p config.Pipeline

	f, err := os.Open(path)
	if err != nil {
		return p, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&p); err != nil {
		return p, fmt.Errorf("decode config: %w", err)
	}
	return p, nil
}
