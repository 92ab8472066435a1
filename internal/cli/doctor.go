package cli

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
)

type tool struct {
	flag     string
	required bool
	purpose  string
}

var tools = []tool{
	{flag: "yt-dlp", required: true, purpose: "downloads"},
	{flag: "ffmpeg", required: true, purpose: "remux and transcode"},
	{flag: "ffprobe", required: true, purpose: "stream inspection"},
	{flag: "gallery-dl", purpose: "picture pages"},
}

type toolStatus struct {
	tool
	path string
	err  error
}

func newDoctor() *cobra.Command {
	return &cobra.Command{
		Use:          "doctor",
		Short:        "Check that the external tools are installed",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}
			statuses := checkTools(func(t tool) string { return flagString(cmd, t.flag) }, exec.LookPath)
			fmt.Fprintln(cmd.OutOrStdout(), renderDoctor(statuses))

			var missing []string
			for _, s := range statuses {
				if s.err != nil && s.required {
					missing = append(missing, s.flag)
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func checkTools(binary func(tool) string, lookPath func(string) (string, error)) []toolStatus {
	out := make([]toolStatus, 0, len(tools))
	for _, t := range tools {
		bin := binary(t)
		if bin == "" {
			bin = t.flag
		}
		path, err := lookPath(bin)
		out = append(out, toolStatus{tool: t, path: path, err: err})
	}
	return out
}

func renderDoctor(statuses []toolStatus) string {
	lines := []string{titleStyle.Render("external tools"), ""}
	for _, s := range statuses {
		var mark, detail string
		switch {
		case s.err == nil:
			mark, detail = okStyle.Render("✓"), s.path
		case s.required:
			mark, detail = errorStyle.Render("✗"), "not found"
		default:
			mark, detail = mutedStyle.Render("-"), "not found, "+s.purpose+" disabled"
		}
		lines = append(lines, fmt.Sprintf("%s %-10s %s", mark, s.flag, mutedStyle.Render(detail)))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}
