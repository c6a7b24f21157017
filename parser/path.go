package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Predicate filters candidate elements of a Step.
type Predicate func(*goquery.Selection) bool

// Step descends to the Index-th element named Tag below the current node.
// Child restricts candidates to direct children; otherwise every descendant
// is considered in document order. A negative Index counts from the end.
type Step struct {
	Tag   string
	Index int
	Child bool
	Where Predicate
}

// Find selects the first descendant named tag.
func Find(tag string) Step {
	return Step{Tag: tag}
}

// FindNth selects the n-th descendant named tag.
func FindNth(tag string, n int) Step {
	return Step{Tag: tag, Index: n}
}

// FindWhere selects the first descendant named tag that satisfies where.
func FindWhere(tag string, where Predicate) Step {
	return Step{Tag: tag, Where: where}
}

// Child selects the n-th direct child named tag.
func Child(tag string, n int) Step {
	return Step{Tag: tag, Index: n, Child: true}
}

// At returns a copy of s targeting the n-th candidate.
func (s Step) At(n int) Step {
	s.Index = n
	return s
}

func (s Step) apply(sel *goquery.Selection) *goquery.Selection {
	var candidates *goquery.Selection
	if s.Child {
		candidates = sel.ChildrenFiltered(s.Tag)
	} else {
		candidates = sel.Find(s.Tag)
	}
	if s.Where != nil {
		candidates = candidates.FilterFunction(func(_ int, c *goquery.Selection) bool {
			return s.Where(c)
		})
	}
	return candidates.Eq(s.Index)
}

// Path is an ordered list of hops from a starting node to a target element.
type Path []Step

// Resolve walks the path from sel. It reports false as soon as any hop
// finds no candidate at the requested position.
func (p Path) Resolve(sel *goquery.Selection) (*goquery.Selection, bool) {
	if sel == nil || sel.Length() == 0 {
		return &goquery.Selection{}, false
	}
	current := sel
	for _, step := range p {
		current = step.apply(current)
		if current.Length() == 0 {
			return current, false
		}
	}
	return current, true
}

// Then returns a new path with steps appended.
func (p Path) Then(steps ...Step) Path {
	out := make(Path, 0, len(p)+len(steps))
	out = append(out, p...)
	return append(out, steps...)
}

// AttrEquals matches elements whose attribute key equals value.
func AttrEquals(key, value string) Predicate {
	return func(sel *goquery.Selection) bool {
		got, ok := sel.Attr(key)
		return ok && got == value
	}
}

// ClassPrefix matches elements carrying a class token that starts with prefix.
func ClassPrefix(prefix string) Predicate {
	return func(sel *goquery.Selection) bool {
		class, ok := sel.Attr("class")
		if !ok {
			return false
		}
		for _, token := range strings.Fields(class) {
			if strings.HasPrefix(token, prefix) {
				return true
			}
		}
		return false
	}
}

// TextMatches matches elements whose trimmed text satisfies re.
func TextMatches(re *regexp.Regexp) Predicate {
	return func(sel *goquery.Selection) bool {
		return re.MatchString(NormalizeText(sel.Text()))
	}
}
