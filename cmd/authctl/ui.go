package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))
)

func printSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render("✓ "+msg))
}

func printSubtle(w io.Writer, msg string) {
	fmt.Fprintln(w, subtleStyle.Render(msg))
}

// confirm asks a yes/no question. Terminals get a huh prompt; piped input is
// read as a single line where only "y" or "Y" confirms.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		var confirmed bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(question).
					Affirmative("Yes").
					Negative("No").
					Value(&confirmed),
			),
		).WithTheme(huh.ThemeCatppuccin())

		if err := form.Run(); err != nil {
			return false, err
		}
		return confirmed, nil
	}

	fmt.Fprint(out, warnStyle.Render(question)+" [y/N] ")
	answer, err := readLine(in)
	if err != nil {
		return false, err
	}
	return answer == "y" || answer == "Y", nil
}
