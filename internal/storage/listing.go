package storage

import (
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// formatListing renders directory entries as a borderless table, one
// entry per line.  Directory names carry a trailing "/".
func formatListing(infos []os.FileInfo) string {
	var b strings.Builder

	tw := tablewriter.NewWriter(&b)
	tw.SetHeader([]string{"Name", "Type", "Size"})
	tw.SetAutoFormatHeaders(true)
	tw.SetAutoWrapText(false)
	tw.SetBorder(false)
	tw.SetHeaderLine(false)
	tw.SetColumnSeparator("")
	tw.SetCenterSeparator("")
	tw.SetRowSeparator("")
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

	for _, fi := range infos {
		name, kind, size := fi.Name(), "file", strconv.FormatInt(fi.Size(), 10)
		if fi.IsDir() {
			name, kind, size = name+"/", "dir", "-"
		}
		tw.Append([]string{name, kind, size})
	}
	tw.Render()

	return strings.TrimRight(b.String(), "\n")
}
