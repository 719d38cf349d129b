package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hyperjump/fypmatch/internal/cli"
	"github.com/hyperjump/fypmatch/internal/config"
	"github.com/hyperjump/fypmatch/internal/corpus"
	"github.com/hyperjump/fypmatch/internal/embedding"
	"github.com/hyperjump/fypmatch/internal/extract"
	"github.com/hyperjump/fypmatch/internal/models"
	"github.com/hyperjump/fypmatch/internal/review"
	"github.com/hyperjump/fypmatch/internal/server"
	"github.com/hyperjump/fypmatch/internal/suggest"
	"go.uber.org/zap"
)

const httpTimeout = 2 * time.Minute

// argsReorder moves flags that follow positional arguments to the front so that
// flag.Parse sees them; the flag package stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func outputFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fatalf("%v", err)
	}
	return format
}

// doJSON sends body (when non-nil) as JSON and decodes a 200 response into out.
func doJSON(method, url string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{Timeout: httpTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readExpertise reads a JSON object of supervisor id -> keywords. An empty path means no supervisors.
func readExpertise(path string) (models.ExpertiseMap, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read expertise: %w", err)
	}
	var m models.ExpertiseMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse expertise %s: %w", path, err)
	}
	return m, nil
}

// buildReviewRequest extracts the proposal and prior-title files into a request.
func buildReviewRequest(title, proposalPath, priorsPath, expertisePath string) (*models.ReviewRequest, error) {
	if proposalPath == "" || priorsPath == "" {
		return nil, fmt.Errorf("--proposal and --prior-titles are required")
	}
	ex := extract.NewExtractor()
	text, err := ex.Extract(proposalPath)
	if err != nil {
		return nil, fmt.Errorf("extract proposal: %w", err)
	}
	priors, err := ex.Titles(priorsPath)
	if err != nil {
		return nil, fmt.Errorf("read prior titles: %w", err)
	}
	expertise, err := readExpertise(expertisePath)
	if err != nil {
		return nil, err
	}
	return &models.ReviewRequest{
		Title:        title,
		ProposalText: text,
		PriorTitles:  priors,
		Expertise:    expertise,
	}, nil
}

func runReview() {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	serverURL := fs.String("server", "", "server URL (empty = review locally)")
	title := fs.String("title", "", "project title")
	proposal := fs.String("proposal", "", "proposal document")
	priors := fs.String("prior-titles", "", "file of previous project titles")
	expertise := fs.String("expertise", "", "JSON file mapping supervisor id to keywords")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := outputFormat(*output)

	req, err := buildReviewRequest(*title, *proposal, *priors, *expertise)
	if err != nil {
		fatalf("Review failed: %v", err)
	}

	var verdict models.ReviewVerdict
	if *serverURL != "" {
		if err := doJSON(http.MethodPost, strings.TrimRight(*serverURL, "/")+"/api/v1/review", req, &verdict); err != nil {
			fatalf("Review failed: %v", err)
		}
	} else {
		cfg, _, logger := setup(*configPath, *debug)
		defer logger.Sync()
		embedder, err := embedding.NewFromConfig(cfg.Embedding, logger)
		if err != nil {
			fatalf("Failed to initialize embedding provider: %v", err)
		}
		defer embedder.Close()
		v, err := review.NewReviewer(embedder, cfg.Review, review.WithLogger(logger)).Evaluate(context.Background(), req)
		if err != nil {
			fatalf("Review failed: %v", err)
		}
		verdict = *v
	}
	if err := cli.WriteVerdict(os.Stdout, &verdict, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runSuggest() {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	serverURL := fs.String("server", "", "server URL (empty = read the corpus snapshot directly)")
	theme := fs.String("theme", "", "project theme")
	tags := fs.String("tags", "", "comma-separated tags")
	k := fs.Int("k", 0, "number of titles (0 = config default)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	format := outputFormat(*output)

	themeStr := *theme
	if themeStr == "" && fs.NArg() > 0 {
		themeStr = strings.Join(fs.Args(), " ")
	}
	if strings.TrimSpace(themeStr) == "" {
		fatalf("Usage: fypmatch suggest --theme <theme> [--tags a,b] [--k n]")
	}
	tagList := suggest.ParseTags(*tags)

	var resp models.SuggestResponse
	if *serverURL != "" {
		body := models.SuggestRequest{Theme: themeStr, Tags: tagList, K: *k}
		if err := doJSON(http.MethodPost, strings.TrimRight(*serverURL, "/")+"/api/v1/suggestions", body, &resp); err != nil {
			fatalf("Suggest failed: %v", err)
		}
	} else {
		cfg, _, logger := setup(*configPath, *debug)
		defer logger.Sync()
		embedder, err := embedding.NewFromConfig(cfg.Embedding, logger)
		if err != nil {
			fatalf("Failed to initialize embedding provider: %v", err)
		}
		defer embedder.Close()
		store := corpus.NewStore(embedder.ModelID())
		if err := loadSnapshot(store, cfg.Storage.SnapshotPath, logger); err != nil {
			fatalf("%v", err)
		}
		start := time.Now()
		results, err := suggest.New(embedder, store,
			suggest.WithLogger(logger),
			suggest.WithLimits(cfg.Suggest.DefaultK, cfg.Suggest.MaxK),
		).SuggestTitles(context.Background(), themeStr, tagList, *k)
		if err != nil {
			fatalf("Suggest failed: %v", err)
		}
		resp = models.SuggestResponse{Suggestions: results, QueryTime: time.Since(start).Milliseconds()}
	}
	if err := cli.WriteSuggestions(os.Stdout, &resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	status := fs.String("status", string(models.StatusApproved), "proposal status: approved, pending or rejected")
	title := fs.String("title", "", "title for inline text")
	text := fs.String("text", "", "inline proposal text")
	rebuild := fs.Bool("rebuild", true, "rebuild the corpus afterwards")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	st := models.ProposalStatus(*status)
	if !st.Valid() {
		fatalf("Unknown status %q", *status)
	}
	if fs.NArg() == 0 && *text == "" {
		fatalf("Usage: fypmatch ingest [flags] <file-or-directory>... | --title T --text TEXT")
	}

	cfg, _, logger := setup(*configPath, *debug)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()
	ctx := context.Background()
	v := components.Vectorizer

	written := 0
	if *text != "" {
		p, err := v.IngestText(ctx, &models.ProposalInput{Title: *title, Text: *text, Status: st})
		if err != nil {
			fatalf("Ingest failed: %v", err)
		}
		fmt.Printf("Stored proposal %s\n", p.ID)
		written++
	}
	for _, path := range fs.Args() {
		info, err := os.Stat(path)
		if err != nil {
			fatalf("Failed to stat %s: %v", path, err)
		}
		if info.IsDir() {
			n, err := v.IngestDirectory(ctx, path, st, cfg.Watch.RecursiveOrDefault())
			if err != nil {
				fatalf("Ingesting %s failed: %v", path, err)
			}
			fmt.Printf("Stored %d proposal(s) from %s\n", n, path)
			written += n
			continue
		}
		changed, err := v.IngestFile(ctx, path, st)
		if err != nil {
			fatalf("Ingesting %s failed: %v", path, err)
		}
		if changed {
			fmt.Printf("Stored %s\n", path)
			written++
		} else {
			fmt.Printf("Unchanged %s\n", path)
		}
	}

	if *rebuild && written > 0 {
		stats, err := v.Rebuild(ctx)
		if err != nil {
			fatalf("Corpus rebuild failed: %v", err)
		}
		fmt.Printf("Corpus rebuilt: %d entries (%d embedded, %d reused)\n",
			components.Corpus.Len(), stats.Embedded, stats.Reused)
	}
}

func runVectorize() {
	fs := flag.NewFlagSet("vectorize", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	prune := fs.Bool("prune", true, "drop proposals whose source file no longer exists")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, *debug)
	defer logger.Sync()
	// A snapshot from another model must not block rebuilding it.
	components, err := newComponents(cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()
	ctx := context.Background()

	if *prune {
		n, err := components.Vectorizer.Prune(ctx)
		if err != nil {
			fatalf("Prune failed: %v", err)
		}
		if n > 0 {
			fmt.Printf("Pruned %d proposal(s) with missing files\n", n)
		}
	}
	stats, err := components.Vectorizer.Rebuild(ctx)
	if err != nil {
		fatalf("Vectorize failed: %v", err)
	}
	fmt.Printf("Wrote %s: %d entries from %d approved proposals (%d embedded, %d reused, %d skipped) in %s\n",
		cfg.Storage.SnapshotPath, components.Corpus.Len(), stats.Approved, stats.Embedded, stats.Reused, stats.Skipped,
		stats.Duration.Round(time.Millisecond))
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	status := fs.String("status", "", "filter by status")
	offset := fs.Int("offset", 0, "skip this many proposals")
	limit := fs.Int("limit", 0, "maximum proposals (0 = all)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := outputFormat(*output)

	st := models.ProposalStatus(*status)
	if st != "" && !st.Valid() {
		fatalf("Unknown status %q", *status)
	}
	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	components, err := newComponents(cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	proposals, err := components.Storage.ListProposals(context.Background(), st, *offset, *limit)
	if err != nil {
		fatalf("List failed: %v", err)
	}
	if err := cli.WriteProposals(os.Stdout, proposals, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read storage directly)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := outputFormat(*output)

	var status server.Status
	if *serverURL != "" {
		if err := doJSON(http.MethodGet, strings.TrimRight(*serverURL, "/")+"/api/v1/status", nil, &status); err != nil {
			fatalf("Status failed: %v", err)
		}
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fatalf("Failed to initialize: %v", err)
		}
		defer components.Close()
		s, err := server.CollectStatus(context.Background(), components.Storage, components.Corpus, cfg)
		if err != nil {
			fatalf("Status failed: %v", err)
		}
		status = *s
	}
	if err := cli.WriteStatus(os.Stdout, &status, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// writeStarterConfig writes a config with every default filled in. Existing files are kept unless force is set.
func writeStarterConfig(path string, force bool) (*config.Config, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return nil, fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	if err := config.Save(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "where to write the config")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])

	cfg, err := writeStarterConfig(*configPath, *force)
	if err != nil {
		fatalf("Init failed: %v", err)
	}
	fmt.Printf("Wrote %s (embedding provider %s, database %s)\n", *configPath, cfg.Embedding.Provider, cfg.Storage.DatabasePath)
}
