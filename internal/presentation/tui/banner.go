package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"  ___ _   _(_) |_ ___ _ __ ___  _   ___  __",
	" / __| | | | | __/ _ \\ '_ ` _ \\| | | \\ \\/ /",
	" \\__ \\ |_| | | ||  __/ | | | | | |_| |>  < ",
	" |___/\\__,_|_|\\__\\___|_| |_| |_|\\__,_/_/\\_\\",
}

// bannerColors is a subtle gradient (Teal/Green), one per line.
var bannerColors = []string{"#2dd4bf", "#34d399", "#4ade80", "#a3e635"}

// PrintBanner writes the suitemux banner to w. The profile decides whether
// and how the gradient is rendered; termenv.Ascii prints plain text.
func PrintBanner(w io.Writer, p termenv.Profile) {
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i])))
	}
	fmt.Fprintln(w)
}
