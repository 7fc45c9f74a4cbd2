package hlapipe

import "math"

// Fragment stage length window. Peptides shorter than the minimum are never
// marked fragments; peptides longer than the maximum are never marked either
// but still serve as containers for shorter ones.
const (
	defragMinLen = 6
	defragMaxLen = 22
)

// suffixTrie indexes every suffix of the peptides added to it, so that a
// lookup of sequence s returns the indices of all added peptides that contain
// s as a substring. Owner lists are only recorded at depths >= minLen; the
// stage never queries shorter sequences.
type suffixTrie struct {
	root   *trieNode
	minLen int
}

type trieNode struct {
	children map[byte]*trieNode
	owners   []int
}

func newSuffixTrie(minLen int) *suffixTrie {
	return &suffixTrie{root: &trieNode{}, minLen: minLen}
}

// add inserts every suffix of seq, tagging each node at sufficient depth with
// the owning record index.
func (t *suffixTrie) add(owner int, seq string) {
	for start := 0; start+t.minLen <= len(seq); start++ {
		node := t.root
		for depth, i := 0, start; i < len(seq); i++ {
			c := seq[i]
			if node.children == nil {
				node.children = make(map[byte]*trieNode)
			}
			next := node.children[c]
			if next == nil {
				next = &trieNode{}
				node.children[c] = next
			}
			node = next
			depth++
			if depth >= t.minLen {
				node.owners = append(node.owners, owner)
			}
		}
	}
}

// get returns the owners of every added peptide containing seq, or nil.
func (t *suffixTrie) get(seq string) []int {
	node := t.root
	for i := 0; i < len(seq); i++ {
		next := node.children[seq[i]]
		if next == nil {
			return nil
		}
		node = next
	}
	return node.owners
}

// findFragments flags records that are substring fragments of a longer
// surviving peptide. Lengths are processed from longest to shortest: before
// checking length L, every peptide longer than L is indexed, so a candidate
// is only ever compared against strictly longer containers. A container only
// disqualifies a candidate when the retention-time gate passes (both carry RT
// and |ΔRT| < threshold; records without RT are gated on containment alone)
// and, under ScopeProtein, when the two share a master accession.
func findFragments(records []Record, cfg FilterConfig) []bool {
	minLen, maxLen := cfg.FragMinLen, cfg.FragMaxLen
	if minLen <= 0 {
		minLen = defragMinLen
	}
	if maxLen <= 0 {
		maxLen = defragMaxLen
	}

	flags := make([]bool, len(records))
	byLen := make(map[int][]int, maxLen)
	for i, r := range records {
		byLen[len(r.NormSeq())] = append(byLen[len(r.NormSeq())], i)
	}

	trie := newSuffixTrie(minLen)
	added := make([]bool, len(records))

	for l := maxLen; l >= minLen; l-- {
		// index everything strictly longer than the current length
		for i, r := range records {
			if !added[i] && len(r.NormSeq()) > l {
				trie.add(i, r.NormSeq())
				added[i] = true
			}
		}
		for _, i := range byLen[l] {
			for _, owner := range trie.get(records[i].NormSeq()) {
				if flags[owner] {
					continue
				}
				if !rtCompatible(records[i], records[owner], cfg.RTThreshold) {
					continue
				}
				if cfg.Scope == ScopeProtein && !sharesProtein(records[i], records[owner]) {
					continue
				}
				flags[i] = true
				break
			}
		}
	}
	return flags
}

// rtCompatible applies the retention-time gate. A negative threshold disables
// the gate; records lacking RT are not penalized for it.
func rtCompatible(candidate, container Record, threshold float64) bool {
	if threshold < 0 {
		return true
	}
	if !candidate.HasRT || !container.HasRT {
		return true
	}
	return math.Abs(candidate.RT-container.RT) < threshold
}
