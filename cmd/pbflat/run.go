package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"github.com/wes-public-apps/protobuf-db/internal/config"
	"github.com/wes-public-apps/protobuf-db/internal/datasource"
	"github.com/wes-public-apps/protobuf-db/internal/datasource/file"
	"github.com/wes-public-apps/protobuf-db/internal/datasource/httpds"
	"github.com/wes-public-apps/protobuf-db/internal/flatten"
	"github.com/wes-public-apps/protobuf-db/internal/metrics"
	"github.com/wes-public-apps/protobuf-db/internal/metrics/datadog"
	"github.com/wes-public-apps/protobuf-db/internal/metrics/prompush"
	"github.com/wes-public-apps/protobuf-db/internal/protosrc"
	"github.com/wes-public-apps/protobuf-db/internal/storage"
	"github.com/wes-public-apps/protobuf-db/internal/tabular"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		cfgPath  string
		validate bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a job file",
		Long: `Run executes the job described by a YAML (or JSON) job file: source,
record encoding, output and metrics. With --validate the file is only
checked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if validate {
				if err := reportIssues(cmd.ErrOrStderr(), config.Validate(job)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: %s\n", cfgPath)
				return nil
			}
			return a.runJob(cmd, job)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "job file path")
	cmd.Flags().BoolVar(&validate, "validate", false, "validate the job file and exit")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

// reportIssues prints every issue and fails when any is an error.
func reportIssues(w io.Writer, issues []config.Issue) error {
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return errors.New("configuration is invalid")
	}
	return nil
}

// runJob validates job, wires metrics and executes it.
func (a *app) runJob(cmd *cobra.Command, job config.Job) error {
	if err := reportIssues(cmd.ErrOrStderr(), config.Validate(job)); err != nil {
		return err
	}
	log := a.log.With(zap.String("job", job.Job))

	flush := setupMetrics(job, log)
	defer flush()

	results, err := execute(cmd.Context(), job, cmd.OutOrStdout(), log)
	if err != nil {
		return err
	}
	for _, r := range results {
		log.Info("table written",
			zap.String("kind", r.Kind),
			zap.Int64("rows", r.Rows),
			zap.Int("columns", r.Columns),
			zap.String("path", r.Path),
			zap.String("fingerprint", fmt.Sprintf("%016x", r.Fingerprint)))
	}
	return nil
}

// setupMetrics installs the job's metrics backend. A backend that fails to
// initialize is logged and metrics stay disabled. The returned func flushes.
func setupMetrics(job config.Job, log *zap.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	opts := job.Metrics.Options
	switch job.Metrics.Backend {
	case "prometheus":
		b, err = prompush.NewBackend(job.Job, opts.String("url", ""))
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       opts.String("addr", "127.0.0.1:8125"),
			Namespace:  opts.String("namespace", ""),
			GlobalTags: opts.StringSlice("tags"),
		})
	default:
		log.Debug("metrics disabled", zap.String("backend", job.Metrics.Backend))
		return func() {}
	}
	if err != nil {
		log.Warn("metrics backend init failed; metrics disabled", zap.String("backend", job.Metrics.Backend), zap.Error(err))
		return func() {}
	}
	metrics.SetBackend(b)
	log.Debug("metrics enabled", zap.String("backend", job.Metrics.Backend))
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", zap.Error(err))
		}
	}
}

// execute reads every record of job.Source, flattens it and finalizes the
// resulting tables into the configured output.
func execute(ctx context.Context, job config.Job, stdout io.Writer, log *zap.Logger) ([]tabular.Result, error) {
	client, err := httpClient(job.Source.HTTP)
	if err != nil {
		return nil, err
	}
	reg, err := loadRegistry(ctx, job.Records.Descriptors, client)
	if err != nil {
		return nil, err
	}

	fl := flatten.New(protosrc.NewProvider(nil), flatten.WithLogger(log))
	topts := tabular.Options{
		ScratchDir:      job.Runtime.ScratchDir,
		InMemory:        job.Runtime.InMemory,
		FinalizeWorkers: job.Runtime.FinalizeWorkers,
		Job:             job.Job,
		Logger:          log,
	}

	var (
		demux *tabular.Demux
		acc   *tabular.Accumulator
		add   func(any) error
	)
	if job.Output.Mixed {
		demux = tabular.NewDemux(fl, topts)
		add = demux.Add
	} else {
		acc = tabular.NewAccumulator(job.Records.Message, fl, topts)
		add = acc.Add
	}

	src := sourceOf(job.Source, client)
	n, err := ingest(ctx, src, reg, job, func(msg proto.Message) error { return add(msg) })
	metrics.RecordSkipped(job.Job, fl.Skipped())
	if err != nil {
		if demux != nil {
			_ = demux.Release()
		} else {
			_ = acc.Release()
		}
		return nil, err
	}
	log.Info("records read", zap.Int64("records", n), zap.Int64("skipped_fields", fl.Skipped()))

	if job.Output.Kind == "db" {
		return loadDB(ctx, job, demux, acc, log)
	}
	switch {
	case demux != nil:
		return demux.FinalizeDir(ctx, job.Output.Path)
	case job.Output.Path == "-":
		res, err := acc.Finalize(tabular.NewCSVSink(stdout))
		return []tabular.Result{res}, err
	default:
		res, err := acc.WriteFile(job.Output.Path)
		return []tabular.Result{res}, err
	}
}

func loadDB(ctx context.Context, job config.Job, demux *tabular.Demux, acc *tabular.Accumulator, log *zap.Logger) ([]tabular.Result, error) {
	repo, err := storage.New(ctx, storage.Config{Kind: job.Storage.Kind, DSN: job.Storage.DB.DSN})
	if err != nil {
		if demux != nil {
			_ = demux.Release()
		} else {
			_ = acc.Release()
		}
		return nil, fmt.Errorf("open storage: %w", err)
	}
	defer repo.Close()

	opts := storage.TableOptions{
		Schema:     job.Storage.DB.Schema,
		Prefix:     job.Storage.DB.TablePrefix,
		AutoCreate: job.Storage.DB.AutoCreateTable,
		BatchSize:  job.Runtime.BatchSize,
		Job:        job.Job,
		Logger:     log,
	}
	if demux != nil {
		return demux.FinalizeWith(ctx, func(kind string) (tabular.Sink, error) {
			return storage.NewTableSink(ctx, repo, kind, opts), nil
		})
	}
	res, err := acc.Finalize(storage.NewTableSink(ctx, repo, acc.Kind(), opts))
	return []tabular.Result{res}, err
}

// ingest feeds every record of src to fn and records the flatten step.
func ingest(ctx context.Context, src datasource.Source, reg *protosrc.Registry, job config.Job, fn func(proto.Message) error) (n int64, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(job.Job, "flatten", err, time.Since(start)) }()

	rc, err := src.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	rd, err := protosrc.NewReader(rc, reg, protosrc.ReaderOptions{
		Format:      protosrc.Format(job.Records.Format),
		MessageName: job.Records.Message,
		Selector:    job.Records.Selector,
	})
	if err != nil {
		return 0, err
	}
	err = rd.Each(func(msg proto.Message) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(msg)
	})
	return rd.Count(), err
}

// sourceOf builds the record source of s.
func sourceOf(s config.Source, client *httpds.Client) datasource.Source {
	if s.Kind == "http" {
		return httpds.NewSource(client, s.HTTP.URL, nil)
	}
	return file.NewLocal(s.File.Path)
}

// locationSource opens a path, "-" or http(s) URL.
func locationSource(loc string, client *httpds.Client) datasource.Source {
	if isURL(loc) {
		return httpds.NewSource(client, loc, nil)
	}
	return file.NewLocal(loc)
}

// loadRegistry reads a descriptor set from loc; empty uses compiled-in types.
func loadRegistry(ctx context.Context, loc string, client *httpds.Client) (*protosrc.Registry, error) {
	if loc == "" {
		return protosrc.GlobalRegistry(), nil
	}
	rc, err := locationSource(loc, client).Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("descriptors: %w", err)
	}
	defer rc.Close()
	reg, err := protosrc.LoadDescriptorSet(rc)
	if err != nil {
		return nil, fmt.Errorf("descriptors %s: %w", loc, err)
	}
	return reg, nil
}

func httpClient(h config.SourceHTTP) (*httpds.Client, error) {
	cfg := httpds.Config{
		MaxRetries:         h.MaxRetries,
		InsecureSkipVerify: h.InsecureSkipVerify,
	}
	if h.Timeout != "" {
		d, err := time.ParseDuration(h.Timeout)
		if err != nil {
			return nil, fmt.Errorf("source.http.timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if len(h.Headers) > 0 {
		cfg.BaseHeaders = make(http.Header, len(h.Headers))
		for k, v := range h.Headers {
			cfg.BaseHeaders.Set(k, v)
		}
	}
	return httpds.NewClient(cfg), nil
}
