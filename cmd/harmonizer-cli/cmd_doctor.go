package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jenezis/harmonizer/client"
)

var errStopWatch = errors.New("stop")

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and connectivity",
		Long:  "Run diagnostic checks against config, server, readiness and auth",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(apiClient)
		},
	}
}

type checkResult struct {
	Name   string
	Passed bool
	Detail string
	Hint   string
}

func runDoctor(c *client.Client) error {
	fmt.Println("\nHarmonizer Doctor")
	fmt.Println("=================")

	var results []checkResult

	if cfgPath, _, err := loadConfigFile(); err != nil {
		results = append(results, checkResult{Name: "Config file", Passed: false, Detail: cfgPath, Hint: "Run: harmonizer init"})
	} else {
		results = append(results, checkResult{Name: "Config file", Passed: true, Detail: cfgPath})
	}

	results = append(results, checkResult{Name: "Server URL", Passed: true, Detail: flagURL})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := c.Health(ctx)
	if err != nil {
		results = append(results, checkResult{
			Name: "Server reachable", Passed: false, Detail: flagURL,
			Hint: fmt.Sprintf("Is the harmonizer server running? Error: %v", err),
		})
		return printChecks(results)
	}
	results = append(results, checkResult{Name: "Server reachable", Passed: true, Detail: "v" + health.Version})

	if health.Status != "healthy" {
		results = append(results, checkResult{
			Name: "Taxonomy cache", Passed: false, Detail: health.Cache.State,
			Hint: "Check the server logs, then run: harmonizer admin reload",
		})
	} else {
		results = append(results, checkResult{
			Name: "Taxonomy cache", Passed: true,
			Detail: fmt.Sprintf("%d aliases, %d skills", health.AliasesCount, health.SkillsCount),
		})
	}

	if ready, err := c.Ready(ctx); err != nil {
		results = append(results, checkResult{Name: "Ready", Passed: false, Hint: err.Error()})
	} else {
		results = append(results, checkResult{Name: "Ready", Passed: true, Detail: fmt.Sprintf("schema v%d", ready.SchemaVersion)})
	}

	results = append(results, checkAuth(c))

	return printChecks(results)
}

// checkAuth opens the authenticated event stream briefly. A stream that stays
// open until the deadline proves the token was accepted.
func checkAuth(c *client.Client) checkResult {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.Admin.Subscribe(ctx, client.SubscribeOptions{}, func(client.Event) error { return errStopWatch })
	switch {
	case err == nil, errors.Is(err, errStopWatch), errors.Is(err, context.DeadlineExceeded):
		return checkResult{Name: "Authentication", Passed: true, Detail: "valid"}
	case client.IsUnauthorized(err), client.IsRateLimited(err):
		return checkResult{Name: "Authentication", Passed: false, Hint: "Set --api-key, HARMONIZER_API_KEY, or run harmonizer init"}
	default:
		return checkResult{Name: "Authentication", Passed: false, Hint: err.Error()}
	}
}

func printChecks(results []checkResult) error {
	fmt.Println()
	allPassed := true
	for _, r := range results {
		mark := okMark()
		if !r.Passed {
			mark = failMark()
			allPassed = false
		}
		if r.Detail != "" {
			fmt.Printf("%s %s: %s\n", mark, r.Name, r.Detail)
		} else {
			fmt.Printf("%s %s\n", mark, r.Name)
		}
		if !r.Passed && r.Hint != "" {
			fmt.Printf("   Hint: %s\n", r.Hint)
		}
	}

	fmt.Println()
	if !allPassed {
		fmt.Println(failColor.Sprint("Some checks failed."))
		return fmt.Errorf("doctor found issues")
	}
	fmt.Println(okColor.Sprint("All checks passed!"))
	return nil
}
