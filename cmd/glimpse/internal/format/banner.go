// Copyright 2025 Glimpse Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package format

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/glimpse-dev/glimpse/pkg/stringutil"
)

// bannerDirMax bounds the directory row so the box fits an 80 column
// terminal.
const bannerDirMax = 60

// Banner carries the fields shown when a server starts.
type Banner struct {
	Name    string // binary name, shown as the box title
	Version string
	URL     string // address the server listens on
	Dir     string // directory being served
	Reload  bool   // whether live reload is active
}

// PrintBanner prints the startup box to stdout. Quiet and JSON modes skip
// it entirely; the banner is for humans watching a terminal.
func (f *formatter) PrintBanner(banner Banner) error {
	if f.quiet || f.mode == ModeJSON {
		return nil
	}

	reload := "off"
	if banner.Reload {
		reload = "on"
	}
	title := strings.TrimSpace(fmt.Sprintf("%s %s", banner.Name, banner.Version))
	dir := stringutil.MiddleEllipsis(banner.Dir, bannerDirMax)

	if !f.color {
		var sb strings.Builder
		sb.WriteString(title + "\n")
		sb.WriteString(fmt.Sprintf("  Serving  %s\n", dir))
		sb.WriteString(fmt.Sprintf("  Local    %s\n", banner.URL))
		sb.WriteString(fmt.Sprintf("  Reload   %s\n", reload))
		_, err := f.stdout.Write([]byte(sb.String()))
		return err
	}

	rows := []string{
		bannerTitleStyle.Render(title),
		"",
		bannerLabelStyle.Render("Serving") + bannerValueStyle.Render(dir),
		bannerLabelStyle.Render("Local") + bannerValueStyle.Render(banner.URL),
		bannerLabelStyle.Render("Reload") + bannerValueStyle.Render(reload),
	}

	_, err := fmt.Fprintln(f.stdout, bannerBoxStyle.Render(strings.Join(rows, "\n")))
	return err
}

var (
	bannerBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 2)
	bannerTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	bannerLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(9)
	bannerValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
)
