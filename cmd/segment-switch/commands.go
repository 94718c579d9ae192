package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/litescript/ls-segment-switch/internal/catalog"
	"github.com/litescript/ls-segment-switch/internal/connection"
	"github.com/litescript/ls-segment-switch/internal/theme"
)

type command struct {
	usage   string
	minArgs int
	maxArgs int
	run     func(ctx context.Context, a *app, args []string, w io.Writer) error
}

var commands = map[string]command{
	"status":      {usage: "status", run: cmdStatus},
	"segments":    {usage: "segments", run: cmdSegments},
	"modules":     {usage: "modules [segment]", maxArgs: 1, run: cmdModules},
	"switch":      {usage: "switch <segment>", minArgs: 1, maxArgs: 1, run: cmdSwitch},
	"provision":   {usage: "provision <segment> <url> <key>", minArgs: 3, maxArgs: 3, run: cmdProvision},
	"unprovision": {usage: "unprovision <segment>", minArgs: 1, maxArgs: 1, run: cmdUnprovision},
}

func cmdStatus(ctx context.Context, a *app, _ []string, w io.Writer) error {
	snap := a.coord.Snapshot()
	def, err := catalog.DefinitionOf(snap.ActiveSegment)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "segment     %s (%s)\n", def.DisplayName, def.ID)
	if snap.Connected() {
		fmt.Fprintf(w, "connection  %s\n", snap.Endpoint)
	} else {
		fmt.Fprintf(w, "connection  none\n")
	}
	writeTheme(w, snap.AppliedTheme)

	doc := a.surface.Snapshot()
	fmt.Fprintf(w, "classes     %s\n", strings.Join(doc.Classes, " "))

	provisioned, err := a.settings.ProvisionedSegments(ctx)
	if err != nil {
		return err
	}
	if len(provisioned) == 0 {
		fmt.Fprintln(w, "backends    none provisioned")
		return nil
	}
	fmt.Fprintln(w, "backends")
	for _, id := range provisioned {
		cfg, _, err := a.settings.ConnectionConfig(ctx, id)
		if err != nil {
			fmt.Fprintf(w, "  %-11s unreadable: %v\n", id, err)
			continue
		}
		fmt.Fprintf(w, "  %-11s %s\n", id, cfg.EndpointURL)
	}
	return nil
}

func writeTheme(w io.Writer, pref theme.Preference) {
	for _, c := range []struct{ label, hex string }{
		{"primary", pref.PrimaryColor},
		{"secondary", pref.SecondaryColor},
	} {
		hsl, err := theme.HexToHSL(c.hex)
		if err != nil {
			fmt.Fprintf(w, "%-11s %s (invalid)\n", c.label, c.hex)
			continue
		}
		fmt.Fprintf(w, "%-11s %s  %s\n", c.label, c.hex, hsl)
	}
	fmt.Fprintf(w, "typography  %s\n", pref.Typography)
	fmt.Fprintf(w, "icons       %s\n", pref.IconStyle)
	fmt.Fprintf(w, "layout      %s\n", strings.Join(pref.LayoutPriorities, ", "))
}

func cmdSegments(ctx context.Context, a *app, _ []string, w io.Writer) error {
	provisioned, err := a.settings.ProvisionedSegments(ctx)
	if err != nil {
		return err
	}
	active := a.coord.ActiveSegment()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tBACKEND")
	for _, def := range catalog.All() {
		marker := ""
		if def.ID == active {
			marker = "*"
		}
		backend := "-"
		if slices.Contains(provisioned, def.ID) {
			backend = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", marker, def.ID, def.DisplayName, backend)
	}
	return tw.Flush()
}

func cmdModules(_ context.Context, a *app, args []string, w io.Writer) error {
	var mods []catalog.ModuleCode
	if len(args) == 0 {
		mods = a.coord.ActiveModules()
	} else {
		id, err := catalog.Parse(args[0])
		if err != nil {
			return err
		}
		if id == a.coord.ActiveSegment() {
			mods = a.coord.ActiveModules()
		} else {
			def, err := catalog.DefinitionOf(id)
			if err != nil {
				return err
			}
			mods = catalog.ArrangeModules(def.Modules, def.DefaultTheme.LayoutPriorities)
		}
	}
	for i, m := range mods {
		fmt.Fprintf(w, "%d. %s\n", i+1, m)
	}
	return nil
}

func cmdSwitch(ctx context.Context, a *app, args []string, w io.Writer) error {
	id, err := catalog.Parse(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ProbeTimeout()+10*time.Second)
	defer cancel()
	if err := a.coord.SwitchSegment(ctx, id, nil); err != nil {
		return err
	}
	def, _ := catalog.DefinitionOf(id)
	fmt.Fprintf(w, "Switched to %s\n", def.DisplayName)
	return nil
}

func cmdProvision(ctx context.Context, a *app, args []string, w io.Writer) error {
	id, err := catalog.Parse(args[0])
	if err != nil {
		return err
	}
	cfg := connection.Config{Segment: id, EndpointURL: args[1], Credential: args[2]}
	if err := a.settings.PutConnectionConfig(ctx, cfg); err != nil {
		return err
	}
	fmt.Fprintf(w, "Provisioned %s\n", cfg.Redacted())
	return nil
}

func cmdUnprovision(ctx context.Context, a *app, args []string, w io.Writer) error {
	id, err := catalog.Parse(args[0])
	if err != nil {
		return err
	}
	if err := a.settings.DeleteConnectionConfig(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(w, "Removed the %s backend\n", id)
	return nil
}
