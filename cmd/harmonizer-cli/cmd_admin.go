package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jenezis/harmonizer/client"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands",
	}
	cmd.AddCommand(adminHealthCmd())
	cmd.AddCommand(adminReadyCmd())
	cmd.AddCommand(adminStatsCmd())
	cmd.AddCommand(adminReloadCmd())
	cmd.AddCommand(adminWatchCmd())
	return cmd
}

func adminHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Run: func(cmd *cobra.Command, args []string) {
			resp, err := apiClient.Health(context.Background())
			if err != nil {
				fatal("health", err)
			}
			if flagFmt == "table" {
				formatTable([]string{"CHECK", "VALUE"}, [][]string{
					{"Status", statusColor(resp.Status)},
					{"Version", resp.Version},
					{"Database", statusColor(resp.Database)},
					{"Cache", statusColor(resp.Cache.State)},
					{"Aliases", strconv.Itoa(resp.AliasesCount)},
					{"Skills", strconv.Itoa(resp.SkillsCount)},
					{"Uptime", (time.Duration(resp.UptimeSeconds) * time.Second).String()},
				})
				return
			}
			output(resp, resp.Status)
		},
	}
}

func adminReadyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness",
		Run: func(cmd *cobra.Command, args []string) {
			resp, err := apiClient.Ready(context.Background())
			if err != nil {
				fatal("ready", err)
			}
			output(resp, resp.Status)
		},
	}
}

func adminStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show taxonomy statistics",
		Run: func(cmd *cobra.Command, args []string) {
			resp, err := apiClient.Stats(context.Background())
			if err != nil {
				fatal("stats", err)
			}
			if flagFmt == "table" {
				formatTable(
					[]string{"METRIC", "VALUE"},
					[][]string{
						{"Skills", strconv.Itoa(resp.TotalSkills)},
						{"Aliases", strconv.Itoa(resp.TotalAliases)},
						{"Relations", strconv.Itoa(resp.TotalRelations)},
						{"Database", statusColor(resp.Database)},
						{"Source", resp.Source},
					},
				)
				return
			}
			output(resp, strconv.Itoa(resp.TotalSkills))
		},
	}
}

func adminReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Rebuild the server's taxonomy cache from its store",
		Run: func(cmd *cobra.Command, args []string) {
			resp, err := apiClient.Admin.Reload(context.Background())
			if err != nil {
				fatal("reload", err)
			}
			if flagFmt == "table" {
				fmt.Printf("%s %s: %d aliases, %d skills (generation %d)\n",
					okMark(), resp.Message, resp.AliasesCount, resp.SkillsCount, resp.Cache.Generation)
				return
			}
			output(resp, resp.Status)
		},
	}
}

func adminWatchCmd() *cobra.Command {
	var opts client.SubscribeOptions
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream server events until interrupted",
		Long: `Stream taxonomy events from the server. The stream opens with a welcome
line carrying the current event id; pass it to --since on the next run to
replay anything missed in between.`,
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			err := apiClient.Admin.Subscribe(ctx, opts, func(ev client.Event) error {
				if flagFmt == "json" {
					data, _ := json.Marshal(ev)
					fmt.Println(string(data))
					return nil
				}
				fmt.Println(formatEvent(ev))
				return nil
			})
			if err != nil {
				fatal("watch", err)
			}
		},
	}
	cmd.Flags().Uint64Var(&opts.LastEventID, "since", 0, "Replay events after this id")
	cmd.Flags().StringSliceVar(&opts.Events, "events", nil,
		"Only these event types ("+client.EventTaxonomyReloaded+", "+client.EventTaxonomyReloadFailed+")")
	return cmd
}

// formatEvent renders one stream message as a single line.
func formatEvent(ev client.Event) string {
	switch ev.Type {
	case client.EventWelcome:
		line := fmt.Sprintf("%s connected at event #%d", okMark(), ev.LastEventID)
		if ev.Cache != nil {
			line += fmt.Sprintf(", taxonomy %s (generation %d)", statusColor(ev.Cache.State), ev.Cache.Generation)
		}
		return line
	case client.EventReset:
		return fmt.Sprintf("%s reset: %s", warnColor.Sprint("!"), ev.Reason)
	case client.EventShutdown:
		return warnColor.Sprint("server shutting down")
	}

	kind := okColor.Sprint(ev.Type)
	if ev.Type == client.EventTaxonomyReloadFailed {
		kind = failColor.Sprint(ev.Type)
	}
	return fmt.Sprintf("%s  #%d  %s  %s", ev.Time.Format(time.RFC3339), ev.ID, kind, string(ev.Data))
}
