package radio

import (
	"bufio"
	"os"
	"strings"
)

var fallbackTitles = []string{"Channel 1", "Channel 2"}

// LoadTitles reads one display title per line from path. Line N titles the
// channel at index N. When the file cannot be read the stock two-entry list
// is returned instead; no error is surfaced.
func LoadTitles(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return append([]string(nil), fallbackTitles...)
	}
	defer f.Close()

	var titles []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		titles = append(titles, strings.TrimSpace(sc.Text()))
	}
	if sc.Err() != nil {
		return append([]string(nil), fallbackTitles...)
	}
	return titles
}
