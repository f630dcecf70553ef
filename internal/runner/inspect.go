package runner

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"

	"github.com/LdDl/nkdvprep"
)

// RunInspect parses output file and prints its summary with top edges by number of observations
func RunInspect(fname string, top int, w io.Writer) error {
	content, err := nkdvprep.ReadRecordsFile(fname)
	if err != nil {
		return errors.Wrap(err, "Can't inspect")
	}

	observations := 0
	observed := 0
	for _, record := range content.Records {
		observations += record.Count()
		if record.Count() > 0 {
			observed++
		}
	}
	summary := tablewriter.NewWriter(w)
	summary.SetHeader([]string{"nodes", "edges", "edges with observations", "observations"})
	summary.Append([]string{
		fmt.Sprintf("%d", content.NodesNum),
		fmt.Sprintf("%d", content.EdgesNum),
		fmt.Sprintf("%d", observed),
		fmt.Sprintf("%d", observations),
	})
	summary.Render()

	if top <= 0 || observed == 0 {
		return nil
	}
	records := make([]nkdvprep.EdgeRecord, len(content.Records))
	copy(records, content.Records)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Count() > records[j].Count()
	})
	if top > observed {
		top = observed
	}
	data := make([][]string, 0, top)
	for _, record := range records[:top] {
		data = append(data, []string{
			fmt.Sprintf("%d", record.Key.U),
			fmt.Sprintf("%d", record.Key.V),
			fmt.Sprintf("%d", record.Count()),
			fmt.Sprintf("%f", record.Offsets[0]),
			fmt.Sprintf("%f", record.Offsets[len(record.Offsets)-1]),
		})
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"u", "v", "count", "min offset", "max offset"})
	table.AppendBulk(data)
	table.Render()
	return nil
}
