package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/VoiceFit/internal/device"
	"github.com/himanishpuri/VoiceFit/pkg/utils"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/account"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/audio"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/capture"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/client"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/model"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/recommend"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/upload"
)

// parseCommand accepts the positional argument before or after the flags.
func parseCommand(fs *flag.FlagSet, args []string) (string, error) {
	var positional string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		positional, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if positional == "" {
		positional = fs.Arg(0)
	}
	return positional, nil
}

// analysisFlags are shared by analyze and record.
type analysisFlags struct {
	mode        string
	cross       bool
	interactive bool
	covers      bool
	asJSON      bool
	filter      recommend.Filter
}

func registerAnalysisFlags(fs *flag.FlagSet, st settings) *analysisFlags {
	f := &analysisFlags{}
	fs.StringVar(&f.mode, "mode", st.VocalRangeMode, "Vocal range mode: male, female or any")
	fs.BoolVar(&f.cross, "cross", st.AllowCrossGender, "Allow cross-gender recommendations")
	fs.BoolVar(&f.interactive, "i", false, "Choose options interactively")
	fs.BoolVar(&f.covers, "covers", false, "Look up missing album covers")
	fs.BoolVar(&f.asJSON, "json", false, "Print the normalized result as JSON")
	fs.StringVar(&f.filter.Genre, "genre", recommend.All, "Only show recommendations with this genre tag")
	fs.StringVar(&f.filter.Mood, "mood", recommend.All, "Only show recommendations with this mood tag")
	fs.StringVar(&f.filter.Difficulty, "difficulty", recommend.All, "Only show this difficulty (1-5)")
	fs.StringVar(&f.filter.RangeLevel, "range", recommend.All, "Only show this range level (1-5)")
	return f
}

func (f *analysisFlags) options() (client.AnalyzeOptions, error) {
	var err error
	if f.filter.Difficulty, err = recommend.ParseLevel(f.filter.Difficulty); err != nil {
		return client.AnalyzeOptions{}, err
	}
	if f.filter.RangeLevel, err = recommend.ParseLevel(f.filter.RangeLevel); err != nil {
		return client.AnalyzeOptions{}, err
	}

	mode, ok := model.ParseVocalRangeMode(strings.ToLower(f.mode))
	if !ok {
		return client.AnalyzeOptions{}, fmt.Errorf("invalid -mode %q: use male, female or any", f.mode)
	}
	opts := client.AnalyzeOptions{VocalRangeMode: mode, AllowCrossGender: f.cross}
	if f.interactive {
		if err := promptAnalyzeOptions(&opts); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func runAnalyze(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	af := registerAnalysisFlags(fs, a.settings)
	mimeType := fs.String("mime", "", "Declared content type (guessed from the extension when empty)")
	path, err := parseCommand(fs, args)
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New("usage: voicefit analyze <file.wav> [flags]")
	}
	opts, err := af.options()
	if err != nil {
		return err
	}

	out := a.svc.AnalyzeFile(ctx, utils.ExpandHome(path), *mimeType, opts)
	if out.Err != nil {
		return out.Err
	}
	return printOutcome(ctx, os.Stdout, a.svc.Covers(), out, af)
}

func runRecord(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	af := registerAnalysisFlags(fs, a.settings)
	rate := fs.Int("rate", device.DefaultSampleRate, "Capture sample rate")
	save := fs.String("save", "", "Also write the recording to this path")
	if _, err := parseCommand(fs, args); err != nil {
		return err
	}
	opts, err := af.options()
	if err != nil {
		return err
	}

	if af.interactive {
		ok, err := promptConfirm("Start recording?", "Sing or hum for 3 to 20 seconds. Press Enter to stop.")
		if err != nil || !ok {
			return err
		}
	}

	mic := device.NewMicrophone(device.Config{SampleRate: *rate})
	p := a.svc.NewCapture(mic, func(elapsed time.Duration) {
		fmt.Fprintf(os.Stderr, "\rRecording %4.1fs / %.0fs  (Enter to stop)", elapsed.Seconds(), capture.DefaultMaxDuration.Seconds())
	})
	defer p.Close()

	if err := p.Start(ctx); err != nil {
		return err
	}
	go func() {
		// At EOF (piped or closed stdin) the ceiling ends the take instead.
		if _, err := bufio.NewReader(os.Stdin).ReadString('\n'); err == nil {
			p.Stop()
		}
	}()

	rec, err := p.Wait(ctx)
	fmt.Fprintln(os.Stderr)
	if errors.Is(err, context.Canceled) {
		p.Close()
		return err
	}
	if err != nil {
		return err
	}
	if rec.Degraded {
		a.log.Warnf("could not convert the recording to WAV (%v); keep it with -save and run 'voicefit convert' on it", rec.DecodeErr)
	}
	fmt.Fprintf(os.Stderr, "Captured %s (%s)\n", rec.Duration.Round(100*time.Millisecond), humanize.IBytes(uint64(len(rec.Data))))

	if *save != "" {
		if err := saveRecording(*save, rec); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved to %s\n", *save)
	}

	out := a.svc.Analyze(ctx, rec.Candidate(), opts)
	if out.Err != nil {
		return out.Err
	}
	return printOutcome(ctx, os.Stdout, a.svc.Covers(), out, af)
}

func saveRecording(path string, rec *capture.Recording) error {
	if err := utils.WriteFileAtomic(utils.ExpandHome(path), rec.Data); err != nil {
		return fmt.Errorf("saving recording: %w", err)
	}
	return nil
}

func runValidate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	mimeType := fs.String("mime", "", "Declared content type (guessed from the extension when empty)")
	path, err := parseCommand(fs, args)
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New("usage: voicefit validate <file>")
	}
	res, err := a.svc.Validate(ctx, upload.NewFileCandidate(utils.ExpandHome(path), *mimeType))
	if err != nil {
		return err
	}
	fmt.Printf("OK: %s, %.1fs\n", humanize.IBytes(uint64(res.SizeBytes)), res.DurationSec)
	return nil
}

func runConvert(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	outDir := fs.String("out", ".", "Output directory")
	rate := fs.Int("rate", audio.DefaultDecodeSampleRate, "Output sample rate")
	input, err := parseCommand(fs, args)
	if err != nil {
		return err
	}
	if input == "" {
		return errors.New("usage: voicefit convert <input> [-out dir]")
	}

	wavPath, err := audio.ConvertToMonoWAV(ctx, utils.ExpandHome(input), utils.ExpandHome(*outDir), audio.ConvertWAVConfig{SampleRate: *rate})
	if err != nil {
		return err
	}
	fmt.Println(displayPath(wavPath))

	if res, err := a.svc.Validate(ctx, upload.NewFileCandidate(wavPath, audio.MIMEType)); err != nil {
		fmt.Fprintf(os.Stderr, "Note: %s\n", userMessage(err))
	} else {
		fmt.Fprintf(os.Stderr, "Ready to analyze: %s, %.1fs\n", humanize.IBytes(uint64(res.SizeBytes)), res.DurationSec)
	}
	return nil
}

func runHealth(ctx context.Context, a *app, _ []string) error {
	h, err := a.svc.Health(ctx)
	if err != nil {
		return err
	}
	status := h.Status
	if status == "" {
		status = "ok"
	}
	fmt.Printf("%s: %s", a.svc.BaseURL(), status)
	if h.Message != "" {
		fmt.Printf(" (%s)", h.Message)
	}
	fmt.Println()
	return nil
}

func runHistory(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	af := registerAnalysisFlags(fs, a.settings)
	id, err := parseCommand(fs, args)
	if err != nil {
		return err
	}

	if id != "" {
		rec, ok := a.svc.History().FindAnalysis(id)
		if !ok {
			return fmt.Errorf("no saved analysis with id %q", id)
		}
		if _, err := af.options(); err != nil {
			return err
		}
		return printResult(ctx, os.Stdout, a.svc.Covers(), &rec.Result, af)
	}

	records := a.svc.History().Analyses()
	if len(records) == 0 {
		fmt.Println("No saved analyses yet.")
		return nil
	}
	printHistory(os.Stdout, records)
	return nil
}

func runCredits(_ context.Context, a *app, args []string) error {
	ledger := a.svc.History()
	if len(args) > 0 {
		switch args[0] {
		case "charge":
			if len(args) < 2 {
				return errors.New("usage: voicefit credits charge <amount>")
			}
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			if _, err := ledger.Charge(n); err != nil {
				return err
			}
		case "use":
			note := strings.Join(args[1:], " ")
			if note == "" {
				note = "manual use"
			}
			if _, err := ledger.ConsumeCredit(note); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown credits action %q", args[0])
		}
	}
	printCredits(os.Stdout, ledger.Balance(), ledger.CreditEvents())
	return nil
}

func runPrecision(_ context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: voicefit precision <free|plus|pro>")
	}
	plan, ok := model.ParsePrecisionPlan(strings.ToLower(args[0]))
	if !ok {
		return fmt.Errorf("unknown plan %q: use free, plus or pro", args[0])
	}
	ev, err := a.svc.RequestPrecision(plan)
	if err != nil {
		return err
	}
	fmt.Printf("Precision analysis requested (%s plan, id %s)\n", ev.Plan, ev.ID)
	if ev.UsedCredit > 0 {
		fmt.Printf("Used %d credit; %d left\n", ev.UsedCredit, a.svc.History().Balance())
	}
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password")
	social := fs.String("social", "", "Social provider: google, kakao or naver")
	fs.Parse(args)

	var (
		notice string
		err    error
	)
	switch {
	case *social != "":
		p, ok := account.ParseProvider(*social)
		if !ok {
			return fmt.Errorf("unknown provider %q", *social)
		}
		notice, err = a.svc.Session().LoginWithSocial(ctx, p)
	default:
		if *email == "" {
			if *email, *password, err = promptCredentials(); err != nil {
				return err
			}
		}
		notice, err = a.svc.Session().LoginWithEmail(ctx, account.Credentials{Email: *email, Password: *password})
	}
	if err != nil {
		return err
	}
	if notice != "" {
		fmt.Fprintln(os.Stderr, notice)
	}
	fmt.Printf("Logged in as %s\n", a.svc.Session().Label())
	return nil
}

func runSignup(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	name := fs.String("name", "", "Display name")
	password := fs.String("password", "", "Password")
	fs.Parse(args)

	notice, err := a.svc.Session().SignupWithEmail(ctx, account.SignupRequest{Name: *name, Email: *email, Password: *password})
	if err != nil {
		return err
	}
	if notice != "" {
		fmt.Fprintln(os.Stderr, notice)
	}
	fmt.Printf("Signed up as %s\n", a.svc.Session().Label())
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.svc.Session().Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

// displayPath shortens paths under the working directory.
func displayPath(p string) string {
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, p); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return p
}
