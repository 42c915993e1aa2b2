package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"glsearch/internal/aggregator"
	"glsearch/internal/collector"
	"glsearch/internal/config"
	"glsearch/internal/domain"
	"glsearch/internal/export"
	"glsearch/internal/logging"
	"glsearch/internal/runner"
	"glsearch/internal/storage"
	"glsearch/internal/storage/postgres"
	"glsearch/internal/storage/sqlite"
	"glsearch/pkg/client"
)

var (
	outputCSV    string
	projectsJSON string
	projectsCSV  string
	branch       string
	workers      int
	noStore      bool
	limit        int
	remote       bool
)

var rootCmd = &cobra.Command{
	Use:   "glsearch",
	Short: "GitLab group phrase search tool",
	Long: `A CLI tool that enumerates every project in a GitLab group (descending
through subgroups), searches one branch of each project for a literal phrase,
and writes the outcome to CSV files.

The project listing is exported as JSON and CSV, and each run's results are
kept in a local database for later inspection.`,
}

var searchCmd = &cobra.Command{
	Use:   "search [token] <group> <phrase>",
	Short: "Search a group's projects for a phrase",
	Long: `List all projects of a GitLab group and its subgroups, search the target
branch of each project for the given phrase, and write the results CSV.

The token may be passed as the first positional argument or via GITLAB_TOKEN.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runSearch,
}

var projectsCmd = &cobra.Command{
	Use:   "projects [token] <group>",
	Short: "List and export a group's projects",
	Long:  `List all projects of a GitLab group and its subgroups and export them as JSON and CSV without searching.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runProjects,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show past search runs",
	Long:  `Display summaries of past search runs from the local database, or from a running glsearch API with --remote.`,
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

var runCmd = &cobra.Command{
	Use:   "run <id>",
	Short: "Show one search run's results",
	Long:  `Display one run's summary and its per-project results.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runShowRun,
}

func init() {
	searchCmd.Flags().StringVar(&outputCSV, "output", "gitlab_search_results.csv", "output CSV file for search results")
	searchCmd.Flags().StringVar(&projectsJSON, "projects-json", "projects.json", "file to store the project list as JSON")
	searchCmd.Flags().StringVar(&projectsCSV, "projects-csv", "projects.csv", "file to store the project list as CSV")
	searchCmd.Flags().StringVar(&branch, "branch", "", "branch to search (default from TARGET_BRANCH, falls back to master)")
	searchCmd.Flags().IntVar(&workers, "workers", 0, "concurrent project searches (default from SEARCH_WORKERS, falls back to 3)")
	searchCmd.Flags().BoolVar(&noStore, "no-store", false, "skip persisting the run to the local database")

	projectsCmd.Flags().StringVar(&projectsJSON, "projects-json", "projects.json", "file to store the project list as JSON")
	projectsCmd.Flags().StringVar(&projectsCSV, "projects-csv", "projects.csv", "file to store the project list as CSV")

	runsCmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	runsCmd.Flags().BoolVar(&remote, "remote", false, "fetch runs from the glsearch API instead of the local database")

	runCmd.Flags().BoolVar(&remote, "remote", false, "fetch the run from the glsearch API instead of the local database")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func getStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageType {
	case "postgres":
		return postgres.NewPostgresStorage(cfg.PostgresURL)
	default:
		return sqlite.NewSQLiteStorage(cfg.SQLitePath)
	}
}

// loadConfig folds an optional positional token into the configuration
func loadConfig(token string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if token != "" {
		cfg.GitLabToken = token
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	var token, group, phrase string
	if len(args) == 3 {
		token, group, phrase = args[0], args[1], args[2]
	} else {
		group, phrase = args[0], args[1]
	}

	cfg, err := loadConfig(token)
	if err != nil {
		return err
	}
	if branch == "" {
		branch = cfg.TargetBranch
	}
	if workers == 0 {
		workers = cfg.SearchWorkers
	}

	logger, err := logging.New(logging.Config{FilePath: cfg.LogFile, Level: cfg.LogLevel})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	coll, err := collector.NewGitLabCollector(cfg.GitLabToken, cfg.GitLabURL, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()

	fmt.Printf("Listing projects in group %s...\n", group)
	projects, err := coll.ListGroupProjects(ctx, group)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}
	fmt.Printf("Found %d projects\n", len(projects))

	// Export the listing; a failed export is reported but the search still
	// runs from the in-memory list
	if err := export.WriteProjectsJSON(projectsJSON, projects); err != nil {
		fmt.Printf("Warning: failed to write %s: %v\n", projectsJSON, err)
	}
	if err := export.WriteProjectsCSV(projectsCSV, projects); err != nil {
		fmt.Printf("Warning: failed to write %s: %v\n", projectsCSV, err)
	}

	run := &domain.SearchRun{
		ID:           uuid.New().String(),
		GroupPath:    group,
		Phrase:       phrase,
		Branch:       branch,
		ProjectCount: len(projects),
		Status:       domain.RunStatusInProgress,
		StartedAt:    time.Now(),
	}

	var store storage.Storage
	if !noStore {
		store, err = getStorage(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer store.Close()

		if err := store.SaveRun(ctx, run); err != nil {
			fmt.Printf("Warning: failed to save run: %v\n", err)
		}
	}

	fmt.Printf("Searching branch %q for %q...\n", branch, phrase)
	r := runner.New(coll, workers, logger)
	results := r.Run(ctx, projects, branch, phrase, func(done, total int, project string) {
		fmt.Printf("\rProgress: %d/%d (%s)", done, total, project)
	})
	fmt.Println()

	if err := export.WriteResultsCSV(outputCSV, results); err != nil {
		return fmt.Errorf("failed to write results CSV: %w", err)
	}
	fmt.Printf("Results written to %s\n", outputCSV)

	if store != nil {
		if err := store.SaveResults(ctx, run.ID, results); err != nil {
			fmt.Printf("Warning: failed to save results: %v\n", err)
		}
		if err := store.UpdateRunStatus(ctx, run.ID, domain.RunStatusCompleted, time.Now()); err != nil {
			fmt.Printf("Warning: failed to update run status: %v\n", err)
		}
		fmt.Printf("Run ID: %s\n", run.ID)
	}

	printRunSummary(aggregator.Summarize(run, results))
	return nil
}

func runProjects(cmd *cobra.Command, args []string) error {
	var token, group string
	if len(args) == 2 {
		token, group = args[0], args[1]
	} else {
		group = args[0]
	}

	cfg, err := loadConfig(token)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{FilePath: cfg.LogFile, Level: cfg.LogLevel})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	coll, err := collector.NewGitLabCollector(cfg.GitLabToken, cfg.GitLabURL, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Listing projects in group %s...\n", group)
	projects, err := coll.ListGroupProjects(context.Background(), group)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}
	fmt.Printf("Found %d projects\n", len(projects))

	if err := export.WriteProjectsJSON(projectsJSON, projects); err != nil {
		return fmt.Errorf("failed to write %s: %w", projectsJSON, err)
	}
	if err := export.WriteProjectsCSV(projectsCSV, projects); err != nil {
		return fmt.Errorf("failed to write %s: %w", projectsCSV, err)
	}
	fmt.Printf("Projects exported to %s and %s\n", projectsJSON, projectsCSV)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Project", "Default Branch"})
	for _, p := range projects {
		table.Append([]string{strconv.Itoa(p.ID), p.PathWithNamespace, p.DefaultBranch})
	}
	table.Render()

	return nil
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var summaries []*domain.RunSummary
	if remote {
		summaries, err = client.NewClient(cfg.APIEndpoint).GetRuns(limit)
		if err != nil {
			return fmt.Errorf("failed to fetch runs: %w", err)
		}
	} else {
		store, err := getStorage(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer store.Close()

		summaries, err = aggregator.NewAggregator(store).ListRunSummaries(context.Background(), limit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Run ID", "Group", "Phrase", "Branch", "Projects", "Found", "Errors", "Started"})
	for _, s := range summaries {
		table.Append([]string{
			s.Run.ID,
			s.Run.GroupPath,
			s.Run.Phrase,
			s.Run.Branch,
			strconv.Itoa(s.Run.ProjectCount),
			strconv.FormatInt(s.Found, 10),
			strconv.FormatInt(s.Errors, 10),
			s.Run.StartedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()

	return nil
}

func runShowRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()

	var (
		summary *domain.RunSummary
		results []*domain.SearchResult
	)
	if remote {
		api := client.NewClient(cfg.APIEndpoint)
		summary, err = api.GetRun(runID)
		if err != nil {
			return fmt.Errorf("failed to fetch run: %w", err)
		}
		results, err = api.GetRunResults(runID)
		if err != nil {
			return fmt.Errorf("failed to fetch results: %w", err)
		}
	} else {
		store, err := getStorage(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer store.Close()

		summary, err = aggregator.NewAggregator(store).SummarizeRun(ctx, runID)
		if err != nil {
			return fmt.Errorf("failed to load run: %w", err)
		}
		results, err = store.GetResults(ctx, runID)
		if err != nil {
			return fmt.Errorf("failed to load results: %w", err)
		}
	}

	fmt.Printf("\nRun %s: group %s, phrase %q, branch %s\n\n",
		summary.Run.ID, summary.Run.GroupPath, summary.Run.Phrase, summary.Run.Branch)
	printRunSummary(summary)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Project", "Branch", "File", "Status"})
	for _, r := range results {
		table.Append([]string{r.ProjectName, r.Branch, r.FilePath, string(r.Status)})
	}
	table.Render()

	return nil
}

func printRunSummary(summary *domain.RunSummary) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Status", "Count"})
	table.Append([]string{string(domain.StatusFound), strconv.FormatInt(summary.Found, 10)})
	table.Append([]string{string(domain.StatusNotFound), strconv.FormatInt(summary.NotFound, 10)})
	table.Append([]string{string(domain.StatusBranchMissing), strconv.FormatInt(summary.BranchMissing, 10)})
	table.Append([]string{string(domain.StatusError), strconv.FormatInt(summary.Errors, 10)})
	table.Render()
}
