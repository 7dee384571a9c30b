package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/status"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON, asYAML bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the cache, preload and permission status report",
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := ctx.aggregator()
			if err != nil {
				return err
			}
			report := agg.Report(cmd.Context())
			if done, err := writeStructured(cmd, report, asJSON, asYAML); done {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderReport(report, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the report as JSON")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Output the report as YAML")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")
	return cmd
}

func renderReport(report status.Report, colorize bool) string {
	cell := func(code status.Code, text string) string {
		if text == "" {
			text = code.Label()
		}
		if colorize {
			return colorText(kindForCode(code), text)
		}
		return text
	}

	configDetail := status.NotFound.Label()
	if len(report.ConfigPaths) > 0 {
		configDetail = report.ConfigPaths[0]
	}
	preload := report.PreloadStatus.Label()
	if report.PreloadStatus == status.Progress && report.PreloadPID > 0 {
		preload = fmt.Sprintf("%s (pid %d)", preload, report.PreloadPID)
	}
	permissionCode := report.Permission
	if permissionCode == status.False {
		permissionCode = status.NeedAction
	}

	rows := [][]string{
		{"Nginx Config", cell(report.ConfigStatus, configDetail)},
		{"Cache Key", cell(report.CacheKeyStatus, cacheKeyDetail(report))},
		{"Cache Path", cell(report.CachePath, report.CacheDir)},
		{"Purge", cell(report.PurgeStatus, "")},
		{"Preload", cell(report.PreloadStatus, preload)},
		{"Cache Permissions", cell(permissionCode, report.PermissionLabel)},
		{"Server Side Action", cell(report.ServerAction, "")},
		{"Shell Exec", cell(report.ShellExec, "")},
		{"Isolation", cell(report.Isolation, "")},
		{"Runtime User", report.RuntimeUser},
		{"Web Server User", report.ServerUser},
	}
	for _, command := range report.Commands {
		label := command.Name
		if command.Optional {
			label += " (optional)"
		}
		code := command.Status
		if command.Optional && code == status.NotInstalled {
			code = status.NotDetermined
		}
		rows = append(rows, []string{label, cell(code, command.Status.Label())})
	}
	rows = append(rows, []string{"Pages In Cache", pageCountCell(report.PagesInCache, colorize)})

	var b strings.Builder
	b.WriteString(renderTable("Status Summary", []string{"Check", "Status"}, rows, nil))
	b.WriteString("\n")

	if len(report.Messages) > 0 {
		b.WriteString("\n")
		for _, line := range renderSectionHeader("Notes", colorize) {
			b.WriteString(line + "\n")
		}
		for _, msg := range report.Messages {
			b.WriteString(renderStatusLine(string(msg.Severity), kindForSeverity(msg.Severity), msg.Text, colorize))
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "\nGenerated %s\n", humanize.Time(report.GeneratedAt))
	return b.String()
}

func cacheKeyDetail(report status.Report) string {
	if report.CacheKeyStatus != status.Found {
		return status.NotFound.Label()
	}
	if n := len(report.UnsupportedKeys); n > 0 {
		return fmt.Sprintf("%s (%d unsupported)", status.Found.Label(), n)
	}
	return status.Found.Label()
}

func pageCountCell(count status.PageCount, colorize bool) string {
	if !count.Counted() {
		if colorize {
			return colorText(kindForCode(count.Status), count.Status.Label())
		}
		return count.Status.Label()
	}
	return humanize.Comma(int64(count.Count))
}
