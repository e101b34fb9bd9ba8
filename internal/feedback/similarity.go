package feedback

// Ratio computes a Ratcliff-Obershelp sequence similarity ratio between two
// strings: 2*M/T, where M is the total length of matching blocks found by
// repeatedly taking the longest common substring and recursing on the
// pieces to its left and right, and T is the combined length of both
// inputs. Identical strings score 1.0; strings with no common characters
// score 0.0. Deterministic for fixed inputs.
func Ratio(a, b string) float64 {
	ar := []rune(a)
	br := []rune(b)
	total := len(ar) + len(br)
	if total == 0 {
		return 1.0
	}
	matched := matchingTotal(ar, br)
	return 2.0 * float64(matched) / float64(total)
}

// span is a pending comparison region on the match stack.
type span struct {
	alo, ahi, blo, bhi int
}

func matchingTotal(a, b []rune) int {
	matched := 0
	stack := []span{{0, len(a), 0, len(b)}}

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		i, j, size := longestMatch(a, b, s.alo, s.ahi, s.blo, s.bhi)
		if size == 0 {
			continue
		}
		matched += size
		stack = append(stack,
			span{s.alo, i, s.blo, j},
			span{i + size, s.ahi, j + size, s.bhi},
		)
	}
	return matched
}

// longestMatch finds the longest block where a[i:i+size] == b[j:j+size]
// within the given bounds. Among equally long blocks the earliest in a
// (then earliest in b) wins, which keeps the ratio stable across runs.
func longestMatch(a, b []rune, alo, ahi, blo, bhi int) (int, int, int) {
	b2j := make(map[rune][]int, bhi-blo)
	for j := blo; j < bhi; j++ {
		b2j[b[j]] = append(b2j[b[j]], j)
	}

	besti, bestj, bestsize := alo, blo, 0
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newj2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, bestsize
}
