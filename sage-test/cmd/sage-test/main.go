package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/sage-test/pkg/runner"
	"github.com/Ramsey-B/sage-test/pkg/testcontainers"
)

var (
	testsDir        string
	helpersDir      string
	verbose         bool
	showFailures    bool
	dryRun          bool
	parallel        int
	sageURL         string
	kafkaBrokers    string
	testUser        string
	startContainers bool
	sageImage       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sage-test",
		Short: "YAML-driven integration test runner for the sage API",
		Long: `sage-test runs YAML test suites against a running sage instance.
It can target an existing deployment via --sage-url, or spin up a full
local stack (Postgres, Kafka, Redis, sage) with --start-containers.`,
		RunE: run,
	}

	rootCmd.Flags().StringVarP(&testsDir, "tests", "t", "tests", "directory or glob of YAML test files")
	rootCmd.Flags().StringVar(&helpersDir, "helpers", "helpers", "directory with fixtures and templates")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print each step as it runs")
	rootCmd.Flags().BoolVar(&showFailures, "show-failures", true, "print failure details")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and list tests without running them")
	rootCmd.Flags().IntVarP(&parallel, "parallel", "p", 0, "number of parallel workers (0 = sequential)")
	rootCmd.Flags().StringVar(&sageURL, "sage-url", envOr("SAGE_URL", "http://localhost:3004"), "base URL of the sage API")
	rootCmd.Flags().StringVar(&kafkaBrokers, "kafka-brokers", envOr("KAFKA_BROKERS", "localhost:9092"), "comma separated Kafka brokers")
	rootCmd.Flags().StringVar(&testUser, "test-user", envOr("TEST_USER", "sage-test"), "user id sent as X-User-ID")
	rootCmd.Flags().BoolVar(&startContainers, "start-containers", false, "start a local stack with testcontainers before running")
	rootCmd.Flags().StringVar(&sageImage, "sage-image", "sage:latest", "sage image to run with --start-containers")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	testFiles, err := collectTestFiles(testsDir)
	if err != nil {
		return err
	}
	if len(testFiles) == 0 {
		return fmt.Errorf("no test files found in %s", testsDir)
	}

	if dryRun {
		fmt.Printf("Found %d test files:\n", len(testFiles))
		for _, f := range testFiles {
			fmt.Printf("  %s\n", f)
		}
		return nil
	}

	if startContainers {
		sm := testcontainers.NewServiceManager(cmd.Context())
		defer sm.Stop()

		fmt.Println("Starting infrastructure containers...")
		if err := sm.StartInfrastructure(); err != nil {
			return err
		}
		fmt.Println("Starting sage...")
		if err := sm.StartSage(sageImage); err != nil {
			return err
		}

		sageURL = sm.SageURL
		kafkaBrokers = strings.Join(sm.KafkaBrokers, ",")
		fmt.Printf("Stack ready: sage at %s\n", sageURL)
	}

	config := runner.Config{
		TestFiles:    testFiles,
		HelpersDir:   helpersDir,
		Verbose:      verbose,
		ShowFailures: showFailures,
		Parallel:     parallel,
		SageURL:      sageURL,
		KafkaBrokers: strings.Split(kafkaBrokers, ","),
		TestUser:     testUser,
	}

	result, err := runner.Run(config)
	if err != nil {
		return err
	}

	fmt.Printf("\n%d tests: %d passed, %d failed\n", result.Total, result.Passed, result.Failed)
	if result.Failed > 0 {
		return fmt.Errorf("%d tests failed", result.Failed)
	}
	return nil
}

// collectTestFiles resolves the --tests flag into a sorted list of YAML
// files. It accepts a directory, a glob, or a single file.
func collectTestFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		var files []string
		err := filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() && (strings.HasSuffix(p, ".yaml") || strings.HasSuffix(p, ".yml")) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(files)
		return files, nil
	}
	if err == nil {
		return []string{path}, nil
	}

	matches, err := filepath.Glob(path)
	if err != nil {
		return nil, fmt.Errorf("invalid tests path %q: %w", path, err)
	}
	sort.Strings(matches)
	return matches, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
