package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"pkt.systems/tabcounter/core"
	"pkt.systems/tabcounter/schema"
)

func newPreviewCmd() *cobra.Command {
	var active string
	var radius int
	var previous string
	var colorMode string
	cmd := &cobra.Command{
		Use:   "preview [flags] TAB...",
		Short: "Show the labels and render plan for a tab order",
		Example: `  tabcounter preview --active C A B C D E
  tabcounter preview --active C --previous B=1,A=2,D=1,E=2 A B D C E`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if radius < 0 || radius > schema.MaxWindowRadius {
				return fmt.Errorf("radius must be between 0 and %d", schema.MaxWindowRadius)
			}
			prev, err := parseAssignment(previous)
			if err != nil {
				return err
			}
			useColor, err := wantColor(colorMode, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			activeID, err := schema.NormalizeTabID(active)
			if err != nil {
				return fmt.Errorf("active tab: %w", err)
			}
			tabs := make([]schema.TabID, 0, len(args))
			for _, arg := range args {
				id, err := schema.NormalizeTabID(arg)
				if err != nil {
					return fmt.Errorf("tab %q: %w", arg, err)
				}
				tabs = append(tabs, id)
			}
			return renderPreview(cmd.OutOrStdout(), previewInput{
				Tabs:     tabs,
				Active:   activeID,
				Radius:   radius,
				Previous: prev,
			}, useColor)
		},
	}
	cmd.Flags().StringVarP(&active, "active", "a", "", "id of the active tab")
	cmd.Flags().IntVarP(&radius, "radius", "r", schema.DefaultWindowRadius, "tabs labeled on each side of the active tab")
	cmd.Flags().StringVarP(&previous, "previous", "p", "", "previously rendered labels as id=label,...")
	cmd.Flags().StringVar(&colorMode, "color", "auto", "colorize output: auto, always or never")
	_ = cmd.MarkFlagRequired("active")
	return cmd
}

type previewInput struct {
	Tabs     []schema.TabID
	Active   schema.TabID
	Radius   int
	Previous schema.Assignment
}

func wantColor(mode string, w io.Writer) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "", "auto":
		f, ok := w.(*os.File)
		if !ok {
			return false, nil
		}
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()), nil
	default:
		return false, fmt.Errorf("unsupported color mode %q", mode)
	}
}

// parseAssignment reads "A=1,B=2".
func parseAssignment(value string) (schema.Assignment, error) {
	out := schema.Assignment{}
	value = strings.TrimSpace(value)
	if value == "" {
		return out, nil
	}
	for _, pair := range strings.Split(value, ",") {
		rawID, label, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("previous label %q: expected id=label", pair)
		}
		id, err := schema.NormalizeTabID(rawID)
		if err != nil {
			return nil, fmt.Errorf("previous label %q: %w", pair, err)
		}
		n, err := strconv.Atoi(strings.TrimSpace(label))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("previous label %q: label must be a positive integer", pair)
		}
		out[id] = schema.Label(n)
	}
	return out, nil
}

func renderPreview(w io.Writer, in previewInput, useColor bool) error {
	activeColor := color.New(color.FgGreen, color.Bold)
	labelColor := color.New(color.FgCyan)
	clearColor := color.New(color.FgRed)
	for _, c := range []*color.Color{activeColor, labelColor, clearColor} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	window, ok := core.SelectWindow(in.Tabs, in.Active, in.Radius)
	if !ok {
		return fmt.Errorf("%w: %q", schema.ErrActiveTabMissing, in.Active)
	}
	plan := core.Diff(in.Previous, window)

	width := 0
	for _, tab := range in.Tabs {
		width = max(width, len(tab))
	}
	anchored := false
	for _, tab := range in.Tabs {
		var err error
		switch label, labeled := plan.Next[tab]; {
		case tab == in.Active && !anchored:
			anchored = true
			_, err = fmt.Fprintf(w, "%s %s\n", activeColor.Sprint(">"), activeColor.Sprint(tab))
		case labeled:
			_, err = fmt.Fprintf(w, "  %-*s %s\n", width, tab, labelColor.Sprint(core.LabelText(label)))
		default:
			_, err = fmt.Fprintf(w, "  %s\n", tab)
		}
		if err != nil {
			return err
		}
	}
	if len(in.Previous) == 0 {
		return nil
	}
	if plan.Empty() {
		_, err := fmt.Fprintln(w, "plan: nothing to render")
		return err
	}
	var errs []error
	for _, id := range plan.Clear {
		_, err := fmt.Fprintf(w, "%s %s\n", clearColor.Sprint("clear"), id)
		errs = append(errs, err)
	}
	for _, update := range plan.Set {
		_, err := fmt.Fprintf(w, "%s %s=%s\n", labelColor.Sprint("set"), update.Tab, core.LabelText(update.Label))
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
