package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/elee1766/genstudio/src/apiclient"
)

// CLI represents the main CLI structure
type CLI struct {
	ConfigFile string `name:"config" type:"path" help:"Configuration file (overrides the user config)"`
	BaseURL    string `help:"Backend API base URL, including the /api prefix"`
	LogLevel   string `help:"Log level (debug, info, warn, error)"`
	LogFile    bool   `help:"Write logs as JSON to a file under the state directory"`
	JSON       bool   `help:"Print machine-readable JSON"`
	WS         string `name:"workspace" short:"w" help:"Workspace to act on (default: the current workspace)"`

	Workspace WorkspaceCmd `cmd:"" aliases:"ws" help:"Manage workspaces"`
	Image     ImageCmd     `cmd:"" aliases:"img" help:"Manage images in a workspace"`
	Select    SelectCmd    `cmd:"" help:"Toggle images in the reference selection"`
	Generate  GenerateCmd  `cmd:"" aliases:"gen" help:"Generate images from a prompt and the selected references"`
	Restore   RestoreCmd   `cmd:"" help:"Restore the prompt and references of a generated image"`
	Results   ResultsCmd   `cmd:"" help:"Show or save the results of the last batch"`
	Status    StatusCmd    `cmd:"" default:"1" help:"Show the workspace, selection, prompt and last batch"`
	Config    ConfigCmd    `cmd:"" help:"Show and edit configuration"`
	State     StateCmd     `cmd:"" help:"Inspect the local studio state database"`

	env      *env         `kong:"-"`
	logger   *slog.Logger `kong:"-"`
	closeLog func() error `kong:"-"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("genstudio"),
		kong.Description("Image generation studio client"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))

	err := run(kctx, &cli)
	if err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %s\n", displayError(err))
		os.Exit(exitCode(err))
	}
}

// run executes the selected command and logs a failure by its kind.
func run(kctx *kong.Context, cli *CLI) error {
	err := kctx.Run(cli)
	if err != nil {
		apiclient.NewErrorHandler(cli.commandLogger()).Handle(err, commandName(kctx))
	}
	cli.closeLogs()
	return err
}

// commandName is the command path without argument placeholders, e.g. "image upload".
func commandName(kctx *kong.Context) string {
	var words []string
	for _, word := range strings.Fields(kctx.Command()) {
		if strings.ContainsAny(word[:1], "<[.") {
			continue
		}
		words = append(words, word)
	}
	return strings.Join(words, " ")
}
