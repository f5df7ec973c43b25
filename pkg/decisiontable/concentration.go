package decisiontable

import "sort"

// KeyShare reports one index key tuple's share of the table's rows.
type KeyShare struct {
	Key   string
	Rows  int
	Share float64
}

// ConcentrationReport is the result of Table.Concentration.
type ConcentrationReport struct {
	TopN       int
	Groups     []KeyShare
	OtherShare float64
	HHI        float64
	Band       string
}

// Concentration computes Top-N row-share and the Herfindahl-Hirschman Index
// over the index's key-tuple distribution, banded low/moderate/high. Only
// meaningful when the table has a constant-column index; returns an error
// otherwise.
func (t *Table) Concentration(topN int) (ConcentrationReport, error) {
	if t.index == nil {
		return ConcentrationReport{}, structErr("table has no index to report concentration for")
	}
	if topN <= 0 || topN > 10 {
		topN = 5
	}

	counts := map[string]int{}
	total := 0
	for key, rngs := range t.index.ranges {
		n := 0
		for _, r := range rngs {
			n += r[1] - r[0]
		}
		counts[key] = n
		total += n
	}
	if total == 0 {
		return ConcentrationReport{}, structErr("index has no rows to report concentration for")
	}

	type kv struct {
		k string
		v int
	}
	arr := make([]kv, 0, len(counts))
	for k, v := range counts {
		arr = append(arr, kv{k, v})
	}
	sort.Slice(arr, func(i, j int) bool { return arr[i].v > arr[j].v })

	report := ConcentrationReport{TopN: topN}
	keep := topN
	if keep > len(arr) {
		keep = len(arr)
	}
	var topRows int
	for i := 0; i < keep; i++ {
		share := float64(arr[i].v) / float64(total)
		report.Groups = append(report.Groups, KeyShare{Key: displayKey(arr[i].k), Rows: arr[i].v, Share: round3(share)})
		topRows += arr[i].v
	}
	report.OtherShare = round3(1.0 - float64(topRows)/float64(total))

	var hhi float64
	for _, e := range arr {
		share := float64(e.v) / float64(total)
		hhi += share * share
	}
	report.HHI = round3(hhi)
	switch {
	case hhi < 0.15:
		report.Band = "low"
	case hhi < 0.25:
		report.Band = "moderate"
	default:
		report.Band = "high"
	}
	return report, nil
}

func round3(f float64) float64 {
	return float64(int(f*1000+0.5)) / 1000
}

func displayKey(k string) string {
	out := ""
	for i := 0; i < len(k); i++ {
		if k[i] == indexKeySep[0] {
			out += "|"
			continue
		}
		out += string(k[i])
	}
	if out == "" {
		return "(empty)"
	}
	return out
}
