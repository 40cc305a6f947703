package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapq/internal/cli/config"
	"github.com/leapstack-labs/leapq/internal/cli/output"
	"github.com/leapstack-labs/leapq/pkg/compiler"
	"github.com/leapstack-labs/leapq/pkg/dialect"
)

const replPrompt = "leapq> "

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive compile loop",
		Long: `Start an interactive session that compiles each query to SQL.

Steps can be continued across lines with a trailing '|' or '\'. Session
settings are changed with dot-commands, see .help.`,
		RunE: runREPL,
	}
}

func runREPL(cmd *cobra.Command, _ []string) error {
	cfg := config.FromContext(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr())
	opts := cfg.CompilerOptions()

	// History file in the home directory
	historyFile := filepath.Join(os.TempDir(), ".leapq_history")
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".leapq_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newREPLCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r.Printf("LeapQ REPL %s (target: %s)\n", compiler.Version, opts.Target)
	r.Println("Type .help for commands, .quit to exit")
	r.Println()

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Handle dot-commands
		if strings.HasPrefix(line, ".") && buf.Len() == 0 {
			if handleDotCommand(r, line, &opts) {
				if line == ".quit" || line == ".exit" {
					break
				}
				continue
			}
		}

		// Continue the query on a trailing '|' or '\'
		cont := strings.HasSuffix(line, `\`)
		buf.WriteString(strings.TrimSuffix(line, `\`))
		if cont || strings.HasSuffix(line, "|") {
			buf.WriteString("\n")
			rl.SetPrompt("  ...> ")
			continue
		}
		rl.SetPrompt(replPrompt)

		src := buf.String()
		buf.Reset()

		sql, err := compiler.Compile(src, opts)
		if err != nil {
			r.Errorf("Error: %v", err)
			continue
		}
		r.Println(sql)
		r.Println()
	}

	return nil
}

func handleDotCommand(r *output.Renderer, line string, opts *compiler.Options) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(r)
		return true

	case ".target":
		if len(parts) < 2 {
			r.Mutedf("target: %s", opts.Target)
			return true
		}
		name := parts[1]
		if _, ok := dialect.Get(name); !ok {
			r.Errorf("Unknown dialect %q (known: %s)", name, strings.Join(dialect.List(), ", "))
			return true
		}
		opts.Target = name
		r.Successf("target set to %s", name)
		return true

	case ".format":
		if len(parts) < 2 {
			r.Mutedf("format: %s", onOff(opts.Format))
			return true
		}
		opts.Format = parts[1] == "on"
		r.Successf("format %s", onOff(opts.Format))
		return true

	case ".comment":
		if len(parts) < 2 {
			r.Mutedf("signature comment: %s", onOff(opts.SignatureComment))
			return true
		}
		opts.SignatureComment = parts[1] == "on"
		r.Successf("signature comment %s", onOff(opts.SignatureComment))
		return true

	case ".clear":
		fmt.Print("\033[H\033[2J")
		return true

	default:
		r.Errorf("Unknown command: %s (type .help for commands)", command)
		return true
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func printREPLHelp(r *output.Renderer) {
	help := `
Commands:
  .help             Show this help message
  .target [name]    Show or set the target dialect
  .format on|off    Toggle one-clause-per-line formatting
  .comment on|off   Toggle the generated-by comment
  .clear            Clear the screen
  .quit / .exit     Exit the REPL

Tips:
  - End a line with '|' or '\' to continue the query on the next line
  - Use arrow keys to navigate history
  - Tab completion works for transforms and dialect names
`
	r.Println(help)
}

// newREPLCompleter creates a readline completer for transforms, dialect
// names, and dot-commands.
func newREPLCompleter() *readline.PrefixCompleter {
	var targets []readline.PrefixCompleterInterface
	for _, name := range dialect.List() {
		targets = append(targets, readline.PcItem(name))
	}

	onOffItems := []readline.PrefixCompleterInterface{
		readline.PcItem("on"),
		readline.PcItem("off"),
	}

	items := []readline.PrefixCompleterInterface{
		readline.PcItem("from"),
		readline.PcItem("select"),
		readline.PcItem("derive"),
		readline.PcItem("filter"),
		readline.PcItem("aggregate"),
		readline.PcItem("sort"),
		readline.PcItem("take"),
		readline.PcItem("join"),
		readline.PcItem("group"),
		readline.PcItem("append"),
		readline.PcItem("let"),
		readline.PcItem(".help"),
		readline.PcItem(".target", targets...),
		readline.PcItem(".format", onOffItems...),
		readline.PcItem(".comment", onOffItems...),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	}

	return readline.NewPrefixCompleter(items...)
}
