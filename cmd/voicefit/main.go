// Command voicefit records or uploads a short voice sample, sends it to the VoiceFit
// analysis service and prints the voice profile with song recommendations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/himanishpuri/VoiceFit/pkg/logger"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/account"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/capture"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/client"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/upload"
)

type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, app *app, args []string) error
}

var commands = []command{
	{"analyze", "analyze <file.wav> [flags]", "Validate and analyze an audio file", runAnalyze},
	{"record", "record [flags]", "Record from the microphone and analyze the take", runRecord},
	{"validate", "validate <file>", "Check a file against the upload limits", runValidate},
	{"convert", "convert <input> [-out dir]", "Convert any audio file to a mono WAV with ffmpeg", runConvert},
	{"health", "health", "Check the analysis service", runHealth},
	{"history", "history [id]", "List saved analyses or show one", runHistory},
	{"credits", "credits [charge <n> | use [note]]", "Show or change the credit balance", runCredits},
	{"precision", "precision <free|plus|pro>", "Request a precision analysis", runPrecision},
	{"login", "login [-email addr | -social provider]", "Sign in", runLogin},
	{"signup", "signup -email addr -name name", "Create an account", runSignup},
	{"logout", "logout", "Sign out", runLogout},
}

type app struct {
	settings settings
	svc      *voicefit.Service
	log      *logger.Logger
}

func main() {
	fs := flag.NewFlagSet("voicefit", flag.ExitOnError)
	g := registerGlobalFlags(fs)
	fs.Usage = printUsage
	fs.Parse(os.Args[1:])

	if fs.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	explicit := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})
	file, err := loadFileConfig(g.configPath, explicit)
	if err != nil {
		fail(err)
	}
	st, err := resolveSettings(fs, g, file, os.Getenv)
	if err != nil {
		fail(err)
	}

	log := logger.GetLogger()
	if lvl, ok := logger.ParseLevel(st.LogLevel); ok {
		log.SetLevel(lvl)
	}

	name := fs.Arg(0)
	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
		printUsage()
		os.Exit(1)
	}

	svc, err := voicefit.NewService(
		voicefit.WithBaseURL(st.BaseURL),
		voicefit.WithDBPath(st.DBPath),
		voicefit.WithTimeout(st.Timeout),
		voicefit.WithMockMode(st.MockMode),
		voicefit.WithLogger(log),
		voicefit.WithUserAgent("voicefit-cli/"+version),
	)
	if err != nil {
		fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	log.Debugf("Executing command: %s", name)
	err = cmd.run(ctx, &app{settings: st, svc: svc, log: log}, fs.Args()[1:])
	stop()
	svc.Close()
	if err != nil {
		fail(err)
	}
}

const version = "1.0.0"

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: voicefit [global flags] <command> [args]")
	fmt.Fprintln(os.Stderr, "\nCommands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-44s %s\n", c.usage, c.summary)
	}
	fmt.Fprintln(os.Stderr, "\nGlobal flags:")
	fs := flag.NewFlagSet("voicefit", flag.ContinueOnError)
	registerGlobalFlags(fs)
	fs.SetOutput(os.Stderr)
	fs.PrintDefaults()
}

// fail prints err as one user-facing line and exits.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", userMessage(err))
	os.Exit(1)
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		return "microphone access was denied; you can still analyze a WAV file with 'voicefit analyze'"
	case errors.Is(err, account.ErrLoginRequired):
		return "please log in first ('voicefit login')"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	if ve, ok := upload.IsValidationError(err); ok {
		return ve.Message
	}
	if apiErr, ok := client.AsAPIError(err); ok {
		return apiErr.Message
	}
	return err.Error()
}
