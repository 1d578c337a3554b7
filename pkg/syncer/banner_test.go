package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindErrorBanner(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expFound bool
	}{
		{
			name:     "clean run",
			output:   "sending incremental file list\na.txt\nb.txt\n\nsent 1,234 bytes\n",
			expFound: false,
		},
		{
			name:     "error banner",
			output:   "a.txt\nrsync error: some files/attrs were not transferred (code 23)\n",
			expFound: true,
		},
		{
			name:     "io error",
			output:   "IO error encountered -- skipping file deletion\n",
			expFound: true,
		},
		{
			name:     "per-file failure",
			output:   "rsync: send_files failed to open \"a.txt\": Permission denied (13)\n",
			expFound: true,
		},
		{
			name:     "mention mid-line is not a banner",
			output:   "copying notes about rsync error handling\n",
			expFound: false,
		},
		{
			name:     "empty output",
			output:   "",
			expFound: false,
		},
	}

	for _, test := range tests {
		line, found := findErrorBanner(test.output)
		assert.Equal(t, test.expFound, found, test.name)
		if test.expFound {
			assert.NotEmpty(t, line, test.name)
		}
	}
}
