package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{`     _         _              _ _       _   `, "#38bdf8"},
		{`    / \  _   _| |_ ___  _ __ (_) | ___ | |_ `, "#60a5fa"},
		{`   / _ \| | | | __/ _ \| '_ \| | |/ _ \| __|`, "#818cf8"},
		{`  / ___ \ |_| | || (_) | |_) | | | (_) | |_ `, "#a78bfa"},
		{` /_/   \_\__,_|\__\___/| .__/|_|_|\___/ \__|`, "#c084fc"},
		{`                       |_|                  `, "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
