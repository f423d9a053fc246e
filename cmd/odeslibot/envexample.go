package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envSections groups flags by prefix in the generated file.
var envSections = []struct {
	prefix string
	title  string
}{
	{"telegram-", "Telegram Configuration (Recommended - Default enabled)"},
	{"whatsapp-", "WhatsApp Configuration (Optional - Disabled by default due to ToS concerns)"},
	{"odesli-", "Odesli API"},
	{"cache-", "Song Cache"},
	{"spotify-", "Spotify Inline Search (Optional)"},
	{"server-", "HTTP Server"},
	{"log-", "Logging"},
	{"", "Application Behavior"},
}

// skippedFlags never end up in the environment file.
var skippedFlags = map[string]bool{
	"config":               true,
	"generate-env-example": true,
	"help":                 true,
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# OdesliBot Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	fmt.Fprintf(&content, "# Format: %s_<SECTION>_<SETTING>=value\n", envPrefix)
	content.WriteString("# CLI equivalent: --<section>-<setting>\n")
	content.WriteString("# =============================================================================\n")

	written := map[string]bool{}
	for _, section := range envSections {
		var flags []*pflag.Flag
		cmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
			if skippedFlags[f.Name] || written[f.Name] || !strings.HasPrefix(f.Name, section.prefix) {
				return
			}
			flags = append(flags, f)
		})
		if len(flags) == 0 {
			continue
		}

		content.WriteString("\n# -----------------------------------------------------------------------------\n")
		fmt.Fprintf(&content, "# %s\n", section.title)
		content.WriteString("# -----------------------------------------------------------------------------\n")
		for _, f := range flags {
			written[f.Name] = true
			fmt.Fprintf(&content, "# %s (default: %s)\n", f.Usage, f.DefValue)
			fmt.Fprintf(&content, "%s=%s\n", flagToEnvVar(f.Name), envValue(f))
		}
	}

	return content.String()
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// envValue renders a flag default the way viper reads it back from the environment.
func envValue(f *pflag.Flag) string {
	if f.Value.Type() == "stringSlice" {
		return strings.Trim(f.DefValue, "[]")
	}
	return f.DefValue
}
