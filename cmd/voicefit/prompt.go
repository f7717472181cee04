package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/himanishpuri/VoiceFit/pkg/voicefit/client"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/model"
)

func requireTerminal() error {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return fmt.Errorf("inspect stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 {
		return errors.New("interactive mode requires a terminal; pass the options as flags instead")
	}
	return nil
}

func promptAnalyzeOptions(opts *client.AnalyzeOptions) error {
	if err := requireTerminal(); err != nil {
		return err
	}

	mode := string(opts.VocalRangeMode)
	cross := opts.AllowCrossGender
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which songs should we recommend?").
				Options(
					huh.NewOption("Any voice", string(model.VocalRangeAny)),
					huh.NewOption("Male vocals", string(model.VocalRangeMale)),
					huh.NewOption("Female vocals", string(model.VocalRangeFemale)),
				).
				Value(&mode),
			huh.NewConfirm().
				Title("Include songs sung by the other gender?").
				Value(&cross),
		),
	).Run()
	if err != nil {
		return fmt.Errorf("run option prompt: %w", err)
	}

	opts.VocalRangeMode, _ = model.ParseVocalRangeMode(mode)
	opts.AllowCrossGender = cross
	return nil
}

func promptConfirm(title, description string) (bool, error) {
	if err := requireTerminal(); err != nil {
		return false, err
	}
	ok := true
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Value(&ok).
		Run()
	return ok, err
}

func promptCredentials() (email, password string, err error) {
	if err := requireTerminal(); err != nil {
		return "", "", err
	}
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Email").Value(&email).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("email is required")
					}
					return nil
				}),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password),
		),
	).Run()
	return email, password, err
}
