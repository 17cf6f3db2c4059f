package cmd

import (
	"io"
	"strconv"

	"code.cloudfoundry.org/bytefmt"
	"github.com/olekukonko/tablewriter"

	"github.com/spacemeshos/bitplane/extraction"
)

func report(w io.Writer, planes []extraction.Plane) {
	data := make([][]string, 0, len(planes))
	for _, p := range planes {
		data = append(data, []string{
			strconv.Itoa(p.Index),
			p.Path,
			bytefmt.ByteSize(uint64(p.Size)),
			p.Digest,
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"plane", "file", "size", "sha256"})
	table.SetBorder(true)
	table.AppendBulk(data)
	table.Render()
}
