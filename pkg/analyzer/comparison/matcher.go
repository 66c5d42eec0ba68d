package comparison

import (
	"github.com/cespare/xxhash/v2"
	"github.com/diffgrader/diffgrader/pkg/models"
)

// matchKind runs the two-phase matching for one element kind. studentIdx
// and referenceIdx are indices into the summary's slices, already filtered
// to the kind and in input order. It returns the accepted matches plus the
// leftover indices on each side, also in input order.
func (a *Analyzer) matchKind(s *Summary, kind models.ElementKind, studentIdx, referenceIdx []int) ([]Match, []int, []int) {
	var matches []Match

	usedStudent := make([]bool, len(studentIdx))
	usedReference := make([]bool, len(referenceIdx))

	// Phase 1: exact signature+name matches, first found wins. The hash
	// buckets only narrow the scan; candidate order within a bucket is
	// input order, so the outcome is identical to a full ordered scan.
	buckets := make(map[uint64][]int, len(referenceIdx))
	for pos, ri := range referenceIdx {
		key := identityKey(&s.Reference[ri])
		buckets[key] = append(buckets[key], pos)
	}

	for sPos, si := range studentIdx {
		el := &s.Student[si]
		for _, rPos := range buckets[identityKey(el)] {
			if usedReference[rPos] {
				continue
			}
			ref := &s.Reference[referenceIdx[rPos]]
			if el.Signature == ref.Signature && el.Name == ref.Name {
				matches = append(matches, Match{
					StudentIndex:   si,
					ReferenceIndex: referenceIdx[rPos],
					Similarity:     1.0,
					Differences:    Explain(el.Signature, ref.Signature, kind),
				})
				usedStudent[sPos] = true
				usedReference[rPos] = true
				break
			}
		}
	}

	// Phase 2: best approximate match above the threshold. Strict > keeps
	// the first-seen candidate on ties. A student element that finds no
	// acceptable candidate stays unmatched; it is not retried later.
	for sPos, si := range studentIdx {
		if usedStudent[sPos] {
			continue
		}
		el := &s.Student[si]

		bestPos := -1
		bestScore := 0.0
		for rPos, ri := range referenceIdx {
			if usedReference[rPos] {
				continue
			}
			score := a.scorer.Score(el, &s.Reference[ri])
			if score >= a.threshold && score > bestScore {
				bestPos = rPos
				bestScore = score
			}
		}

		if bestPos >= 0 {
			ri := referenceIdx[bestPos]
			matches = append(matches, Match{
				StudentIndex:   si,
				ReferenceIndex: ri,
				Similarity:     bestScore,
				Differences:    Explain(el.Signature, s.Reference[ri].Signature, kind),
			})
			usedStudent[sPos] = true
			usedReference[bestPos] = true
		}
	}

	var restStudent, restReference []int
	for pos, si := range studentIdx {
		if !usedStudent[pos] {
			restStudent = append(restStudent, si)
		}
	}
	for pos, ri := range referenceIdx {
		if !usedReference[pos] {
			restReference = append(restReference, ri)
		}
	}

	return matches, restStudent, restReference
}

// identityKey hashes the exact-match identity of an element. The NUL
// separator keeps ("ab","c") and ("a","bc") from colliding.
func identityKey(el *models.CodeElement) uint64 {
	h := xxhash.New()
	h.WriteString(el.Signature)
	h.Write([]byte{0})
	h.WriteString(el.Name)
	return h.Sum64()
}
