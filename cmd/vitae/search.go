package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/vitae"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/retrieval"
	"github.com/poiesic/vitae/scoring"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Retrieve the evidence segments most relevant to a question",
		ArgsUsage: "[question] (reads one question per line from stdin when omitted)",
		Action:    searchAction,
		Flags: withFlags(storeFlags(), aiFlags(), []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of results (0 uses the configured default)",
			},
			&cli.Float64Flag{
				Name:  "min-similarity",
				Usage: "Fixed similarity threshold instead of the adaptive one",
			},
			&cli.StringSliceFlag{
				Name:  "skill",
				Usage: "Prefer segments with this skill (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "tag",
				Usage: "Prefer segments with this topic (repeatable)",
			},
			&cli.IntFlag{
				Name:  "since",
				Usage: "Prefer segments whose tenure reaches this year or later",
			},
			&cli.IntFlag{
				Name:  "until",
				Usage: "Prefer segments whose tenure starts in this year or earlier",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "Print each retrieval stage to stderr",
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Serve Prometheus metrics on this address, e.g. :9090",
				EnvVars: []string{"VITAE_METRICS_ADDR"},
			},
		}),
	}
}

func searchAction(c *cli.Context) error {
	var opts []vitae.DatabaseOption
	if addr := c.String("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, vitae.WithRegistry(reg))
		stop := serveMetrics(addr, reg)
		defer stop()
	}

	db, err := openDatabase(c, opts...)
	if err != nil {
		return err
	}
	defer db.Close()

	retriever, err := db.NewRetriever()
	if err != nil {
		return err
	}

	base := retrieval.Query{Limit: c.Int("limit"), Filters: filtersFrom(c)}
	if c.IsSet("min-similarity") {
		v := c.Float64("min-similarity")
		base.MinSimilarity = &v
	}

	var monitor retrieval.RetrievalMonitor
	if c.Bool("trace") {
		monitor = &traceMonitor{w: c.App.ErrWriter}
	}

	search := func(text string) error {
		q := base
		q.Text = text
		var result *retrieval.Result
		var err error
		if monitor != nil {
			result, err = retriever.RetrieveWithMonitor(c.Context, q, monitor)
		} else {
			result, err = retriever.Retrieve(c.Context, q)
		}
		if err != nil {
			return err
		}
		printResult(c.App.Writer, result)
		return nil
	}

	if c.NArg() > 0 {
		return search(strings.Join(c.Args().Slice(), " "))
	}

	scanner := bufio.NewScanner(c.App.Reader)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := search(text); err != nil {
			if errors.Is(err, retrieval.ErrInvalidQuery) {
				fmt.Fprintf(c.App.ErrWriter, "invalid query: %v\n", err)
				continue
			}
			return err
		}
	}
	return scanner.Err()
}

// filtersFrom returns nil when no filter flag is set so that filters may be
// inferred from the question.
func filtersFrom(c *cli.Context) *core.Filters {
	if !c.IsSet("skill") && !c.IsSet("tag") && !c.IsSet("since") && !c.IsSet("until") {
		return nil
	}
	f := &core.Filters{
		Skills: c.StringSlice("skill"),
		Tags:   c.StringSlice("tag"),
	}
	if y := c.Int("since"); y > 0 {
		f.Range.Start = time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if y := c.Int("until"); y > 0 {
		f.Range.End = time.Date(y+1, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)
	}
	return f
}

func serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()
	slog.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func printResult(w io.Writer, r *retrieval.Result) {
	fmt.Fprintf(w, "Request %s: %d results via %s search (threshold %.2f)\n",
		r.RequestID, len(r.Candidates), r.Path, r.Threshold)
	if r.ImplicitFilters {
		fmt.Fprintf(w, "Inferred filters: %s\n", describeFilters(r.Filters))
	}
	if len(r.Expansions) > 0 {
		fmt.Fprintf(w, "Expanded with: %s\n", strings.Join(r.Expansions, "; "))
	}
	if r.IsEmpty() {
		fmt.Fprintf(w, "%s\n\n", r.Guidance)
		return
	}

	for i, hit := range r.Candidates {
		seg := hit.Segment
		fmt.Fprintf(w, "\n%d. [%.3f %s] %s at %s", i+1, hit.Final, hit.Confidence, seg.Title, seg.Organization)
		if hit.DateRange != "" {
			fmt.Fprintf(w, " (%s)", hit.DateRange)
		}
		fmt.Fprintf(w, " %s\n   %s\n", seg.Kind, hit.Explanation)
		for _, phrase := range hit.KeyPhrases {
			fmt.Fprintf(w, "   * %s\n", phrase)
		}
	}
	fmt.Fprintf(w, "\nCoverage: %s\n\n", r.Coverage.Summary)
}

func describeFilters(f core.Filters) string {
	var parts []string
	if len(f.Skills) > 0 {
		parts = append(parts, "skills "+strings.Join(f.Skills, ", "))
	}
	if len(f.Tags) > 0 {
		parts = append(parts, "tags "+strings.Join(f.Tags, ", "))
	}
	if !f.Range.IsZero() {
		parts = append(parts, "dates "+f.Range.Format())
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "; ")
}

// traceMonitor prints retrieval stages as they happen.
type traceMonitor struct {
	w     io.Writer
	start time.Time
}

func (m *traceMonitor) Start(q retrieval.Query) {
	m.start = time.Now()
	fmt.Fprintf(m.w, "trace: query %q\n", q.Text)
}

func (m *traceMonitor) AfterExpansion(expansions []string) {
	fmt.Fprintf(m.w, "trace: %d expansions\n", len(expansions))
}

func (m *traceMonitor) AfterEmbedding(dimensions int) {
	fmt.Fprintf(m.w, "trace: embedded query (%d dimensions)\n", dimensions)
}

func (m *traceMonitor) ThresholdChosen(threshold float64, filters core.Filters, implicit bool) {
	fmt.Fprintf(m.w, "trace: threshold %.2f, filters %s (implicit %t)\n", threshold, describeFilters(filters), implicit)
}

func (m *traceMonitor) AfterSearch(path scoring.Path, matches int) {
	fmt.Fprintf(m.w, "trace: %s search returned %d matches\n", path, matches)
}

func (m *traceMonitor) AfterValidation(kept, dropped int) {
	fmt.Fprintf(m.w, "trace: kept %d, dropped %d\n", kept, dropped)
}

func (m *traceMonitor) Finish(result *retrieval.Result) {
	fmt.Fprintf(m.w, "trace: done in %v with %d results\n", time.Since(m.start).Round(time.Millisecond), len(result.Candidates))
}
