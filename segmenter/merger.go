package segmenter

// DefaultMergeThreshold is the minimum paragraph length, in characters, below
// which a paragraph is merged into its successor.
const DefaultMergeThreshold = 200

// MergeShort merges paragraphs shorter than threshold with the immediately
// following paragraph, joined by a blank line. The pass is forward and
// greedy: a merge consumes both paragraphs and never looks back, so three
// consecutive short paragraphs merge only the first two. A trailing short
// paragraph with no successor is kept as-is.
func MergeShort(paragraphs []string, threshold int) []string {
	if threshold <= 0 {
		threshold = DefaultMergeThreshold
	}
	merged := make([]string, 0, len(paragraphs))
	for i := 0; i < len(paragraphs); {
		current := paragraphs[i]
		if len(current) < threshold && i+1 < len(paragraphs) {
			merged = append(merged, current+"\n\n"+paragraphs[i+1])
			i += 2
			continue
		}
		merged = append(merged, current)
		i++
	}
	return merged
}
