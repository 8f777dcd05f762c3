package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"jobagg/internal/config"
	"jobagg/internal/domain"
	"jobagg/internal/events"
	"jobagg/internal/httpapi"
	"jobagg/internal/scheduler"
	"jobagg/internal/store"
)

const usage = `usage: jobagg <command> [flags]

commands:
  run     run one search and print the jobs as JSON
  serve   start the HTTP API and the scheduled searches
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(ctx, os.Args[2:])
	case "serve":
		err = serveCmd(ctx, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "jobagg:", err)
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func defaultDataDir() string {
	// data dir: use env if provided, else local folder.
	if d := os.Getenv("JOBAGG_DATA_DIR"); d != "" {
		return d
	}
	return "."
}

func runCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	dataDir := fs.String("data-dir", defaultDataDir(), "directory holding config.yml and jobagg.db")
	sites := fs.String("sites", "", "comma separated sources (default: config request, else all)")
	term := fs.String("term", "", "search term")
	googleTerm := fs.String("google-term", "", "full Google jobs query")
	location := fs.String("location", "", "location text")
	distance := fs.Int("distance", 0, "radius in miles")
	remote := fs.Bool("remote", false, "remote jobs only")
	jobType := fs.String("job-type", "", "fulltime, parttime, contract, internship, ...")
	easyApply := fs.Bool("easy-apply", false, "only jobs that can be applied to on the board")
	results := fs.Int("results", 0, "results wanted per source")
	offset := fs.Int("offset", 0, "skip this many results per source")
	hours := fs.Int("hours-old", -1, "only jobs posted within this many hours (0 disables)")
	country := fs.String("country", "", "country for indeed and glassdoor")
	format := fs.String("format", "", "description format: markdown, html or plain")
	annual := fs.Bool("annual", false, "convert all salaries to yearly")
	dedup := fs.Bool("dedup", false, "drop the same posting found on several sources")
	fetchDesc := fs.Bool("linkedin-descriptions", false, "fetch each linkedin detail page")
	proxies := fs.String("proxies", "", "comma separated proxies for this run")
	out := fs.String("out", "", "write JSON here instead of stdout")
	save := fs.Bool("save", false, "also persist the batch to the store")
	if err := fs.Parse(args); err != nil {
		return err
	}

	boot := newLogger("info", "text")
	cfg, _, err := loadConfig(*dataDir, boot)
	if err != nil {
		return err
	}
	log := newLogger(cfg.App.LogLevel, cfg.App.LogFormat)

	req := cfg.Request
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["sites"] {
		if req.Sites, err = parseSites(*sites); err != nil {
			return &domain.ValidationError{Field: "sites", Reason: err.Error()}
		}
	}
	if set["term"] {
		req.SearchTerm = *term
	}
	if set["google-term"] {
		req.GoogleSearchTerm = *googleTerm
	}
	if set["location"] {
		req.Location = *location
	}
	if set["distance"] {
		req.Distance = *distance
	}
	if set["remote"] {
		req.IsRemote = *remote
	}
	if set["job-type"] {
		req.JobType = domain.JobType(*jobType)
	}
	if set["easy-apply"] {
		req.EasyApply = *easyApply
	}
	if set["results"] {
		req.ResultsWanted = *results
	}
	if set["offset"] {
		req.Offset = *offset
	}
	if set["hours-old"] {
		req.HoursOld = *hours
	}
	if set["country"] {
		req.Country = *country
	}
	if set["format"] {
		req.Format = domain.DescriptionFormat(*format)
	}
	if set["annual"] {
		req.EnforceAnnualSalary = *annual
	}
	if set["dedup"] {
		req.DedupAcrossSources = *dedup
	}
	if set["linkedin-descriptions"] {
		req.LinkedInFetchDescription = *fetchDesc
	}
	if set["proxies"] {
		req.Proxies = splitList(*proxies)
	}

	agg, err := newAggregator(cfg, nil, log)
	if err != nil {
		return err
	}
	r := runner{agg: agg}
	if *save {
		db, err := store.Open(filepath.Join(cfg.App.DataDir, "jobagg.db"), log)
		if err != nil {
			return err
		}
		defer db.Close()
		r.db = db
	}

	b, err := r.Run(ctx, req)
	if err != nil {
		return err
	}
	for _, s := range b.Sources {
		log.Info("source", slog.String("site", string(s.Site)), slog.String("state", s.State),
			slog.Int("jobs", s.Jobs), slog.String("error", s.Error))
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return writeJobs(w, b.Jobs)
}

func serveCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	dataDir := fs.String("data-dir", defaultDataDir(), "directory holding config.yml and jobagg.db")
	host := fs.String("host", "127.0.0.1", "listen address")
	port := fs.Int("port", 0, "listen port (default: app.port)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	boot := newLogger("info", "text")
	cfg, cfgPath, err := loadConfig(*dataDir, boot)
	if err != nil {
		return err
	}
	log := newLogger(cfg.App.LogLevel, cfg.App.LogFormat)

	// keep config reloadable
	var cfgVal atomic.Value // stores config.Config
	cfgVal.Store(cfg)
	loadCfg := func() (config.Config, error) {
		c, _, err := loadConfig(*dataDir, log)
		return c, err
	}

	dbPath := filepath.Join(cfg.App.DataDir, "jobagg.db")
	db, err := store.Open(dbPath, log)
	if err != nil {
		return err
	}
	defer db.Close()

	hub := events.NewHub()
	agg, err := newAggregator(cfg, hub, log)
	if err != nil {
		return err
	}
	r := runner{agg: agg, db: db, hub: hub}

	sched, err := scheduler.New(cfg.Schedules, r.Task, 2*cfg.SourceTimeout(), log)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	mux := httpapi.NewMux(httpapi.Deps{
		DB:           db.Pool,
		Hub:          hub,
		Log:          log,
		CfgVal:       &cfgVal,
		UserCfgPath:  cfgPath,
		LoadCfg:      loadCfg,
		RunScrape:    r.Run,
		SourceStatus: agg.Status,
	})

	p := cfg.App.Port
	if *port > 0 {
		p = *port
	}
	addr := net.JoinHostPort(*host, strconv.Itoa(p))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           httpapi.Wrap(mux, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	token := shutdownToken(os.Getenv("JOBAGG_SHUTDOWN_TOKEN"))
	mux.HandleFunc("/shutdown", shutdownHandler(token, srv))

	log.Info("listening", slog.String("addr", "http://"+addr), slog.String("db", dbPath),
		slog.Int("schedules", sched.Entries()))

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("stopped")
	return nil
}
