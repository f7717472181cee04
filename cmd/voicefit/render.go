package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/VoiceFit/pkg/voicefit/fallback"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/model"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/recommend"
)

const barWidth = 20

func printOutcome(ctx context.Context, w io.Writer, covers *recommend.CoverFinder, out fallback.Outcome, af *analysisFlags) error {
	if out.Notice != "" {
		fmt.Fprintf(w, "! %s\n", out.Notice)
	}
	if out.Record != nil {
		fmt.Fprintf(w, "Saved as %s\n", out.Record.ID)
	}
	return printResult(ctx, w, covers, out.Result, af)
}

func printResult(ctx context.Context, w io.Writer, covers *recommend.CoverFinder, res *model.AnalyzeResponse, af *analysisFlags) error {
	recs := af.filter.Apply(res.Recommendations)

	if af.asJSON {
		view := *res
		view.Recommendations = recs
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Voice profile (confidence %d%%)\n", int(res.Confidence*100+0.5))
	fmt.Fprintf(w, "  brightness %s\n", bar(res.Profile.Brightness))
	fmt.Fprintf(w, "  husky      %s\n", bar(res.Profile.Husky))
	fmt.Fprintf(w, "  softness   %s\n", bar(res.Profile.Softness))
	if res.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", res.Summary)
	}
	fmt.Fprintf(w, "\nInput: %.1fs, signal %s", res.InputInfo.DurationSec, res.InputInfo.SignalQuality)
	if res.InputInfo.Note != "" {
		fmt.Fprintf(w, " (%s)", res.InputInfo.Note)
	}
	fmt.Fprintf(w, "\nFilters: %s voice, cross-gender %s\n", res.Filters.VocalRangeMode, onOff(res.Filters.AllowCrossGender))

	genres, moods := recommend.TagGroups(res.Recommendations)
	if len(genres)+len(moods) > 0 {
		fmt.Fprintf(w, "Tags: genre [%s] mood [%s]\n", strings.Join(genres, ", "), strings.Join(moods, ", "))
	}

	fmt.Fprintf(w, "\nRecommendations (%d of %d)\n", len(recs), len(res.Recommendations))
	if len(recs) == 0 {
		fmt.Fprintln(w, "  No songs match the current filter.")
		return nil
	}
	for _, r := range recs {
		printRecommendation(ctx, w, covers, r, af.covers)
	}
	return nil
}

func printRecommendation(ctx context.Context, w io.Writer, covers *recommend.CoverFinder, r model.Recommendation, lookupCover bool) {
	fmt.Fprintf(w, "\n%2d. %s - %s  %d%% match\n", r.Rank, r.Title, r.Artist, r.MatchPercent)
	fmt.Fprintf(w, "    difficulty %d/5, range %d/5", r.Difficulty, r.RangeLevel)
	if len(r.Tags) > 0 {
		fmt.Fprintf(w, ", #%s", strings.Join(r.Tags, " #"))
	}
	fmt.Fprintln(w)
	for _, reason := range r.Reasons {
		fmt.Fprintf(w, "    - %s\n", reason)
	}

	links := recommend.PlatformLinks(r)
	fmt.Fprintf(w, "    YouTube: %s\n", links.YouTube)
	fmt.Fprintf(w, "    Melon:   %s\n", links.Melon)
	fmt.Fprintf(w, "    Spotify: %s\n", links.Spotify)
	if r.PreviewURL != "" {
		fmt.Fprintf(w, "    Preview: %s\n", r.PreviewURL)
	}

	cover := r.CoverURL
	if cover == "" && lookupCover && covers != nil {
		cover = covers.CoverURL(ctx, r)
	}
	if cover != "" {
		fmt.Fprintf(w, "    Cover:   %s\n", cover)
	}
}

func bar(v float64) string {
	n := int(v*barWidth + 0.5)
	return fmt.Sprintf("%s%s %3d%%", strings.Repeat("#", n), strings.Repeat(".", barWidth-n), int(v*100+0.5))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func printHistory(w io.Writer, records []model.AnalysisRecord) {
	for _, rec := range records {
		top := "-"
		if len(rec.Result.Recommendations) > 0 {
			r := rec.Result.Recommendations[0]
			top = fmt.Sprintf("%s - %s", r.Title, r.Artist)
		}
		fmt.Fprintf(w, "%s  %-14s  %-4s  %s\n", rec.ID, humanize.Time(rec.CreatedAt), rec.Source, top)
	}
}

func printCredits(w io.Writer, balance int, events []model.CreditEvent) {
	fmt.Fprintf(w, "Balance: %s credits\n", humanize.Comma(int64(balance)))
	for i, ev := range events {
		if i == 10 {
			fmt.Fprintf(w, "  ... %d older events\n", len(events)-10)
			break
		}
		sign := "+"
		if ev.Type == model.CreditUse {
			sign = "-"
		}
		fmt.Fprintf(w, "  %s%d  %-14s  %s\n", sign, ev.Amount, humanize.Time(ev.CreatedAt), ev.Note)
	}
}
