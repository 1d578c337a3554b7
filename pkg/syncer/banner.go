package syncer

import "strings"

// errorBanners are the line prefixes the agent's underlying copy tool prints
// on failure. Some partial-transfer configurations still exit zero, so the
// log is scanned as a second signal.
var errorBanners = []string{
	"rsync error:",
	"rsync: ",
	"IO error encountered",
}

func findErrorBanner(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		for _, banner := range errorBanners {
			if strings.HasPrefix(trimmed, banner) {
				return trimmed, true
			}
		}
	}
	return "", false
}
