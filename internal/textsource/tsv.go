package textsource

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"certverify/internal/arabic"
	"certverify/internal/certificate"
)

// rowBucket is the vertical distance, in rasterized pixels, within which two
// OCR lines are considered to share a row.
const rowBucket = 18

// tesseract TSV columns
const (
	colLevel = iota
	colPage
	colBlock
	colPar
	colLine
	colWord
	colLeft
	colTop
	colWidth
	colHeight
	colConf
	colText
	tsvColumns
)

const wordLevel = 5

type lineKey struct {
	page, block, par, line int
}

type ocrLine struct {
	key    lineKey
	words  []string
	region certificate.Region
	right  int
	bottom int
}

func (l *ocrLine) add(word string, left, top, width, height int) {
	if len(l.words) == 0 {
		l.region = certificate.Region{Page: l.key.page, Left: left, Top: top}
		l.right, l.bottom = left+width, top+height
	} else {
		l.region.Left = min(l.region.Left, left)
		l.region.Top = min(l.region.Top, top)
		l.right = max(l.right, left+width)
		l.bottom = max(l.bottom, top+height)
	}
	l.region.Width = l.right - l.region.Left
	l.region.Height = l.bottom - l.region.Top
	l.words = append(l.words, word)
}

// ParseTSV turns tesseract TSV output into ordered text lines. Words are
// grouped by (page, block, paragraph, line); lines are ordered by page, row
// and then right-to-left when they carry Arabic. The returned confidence is
// the mean word confidence on a 0..1 scale.
func ParseTSV(data []byte, pageOffset int) ([]certificate.TextLine, float64) {
	lines := map[lineKey]*ocrLine{}
	var order []lineKey
	var confSum float64
	var confN int

	for i, row := range strings.Split(string(data), "\n") {
		if i == 0 && strings.HasPrefix(row, "level") {
			continue
		}
		cols := strings.Split(strings.TrimRight(row, "\r"), "\t")
		if len(cols) < tsvColumns {
			continue
		}
		if atoi(cols[colLevel]) != wordLevel {
			continue
		}
		text := strings.TrimSpace(strings.Join(cols[colText:], " "))
		if text == "" {
			continue
		}
		key := lineKey{
			page:  atoi(cols[colPage]) + pageOffset,
			block: atoi(cols[colBlock]),
			par:   atoi(cols[colPar]),
			line:  atoi(cols[colLine]),
		}
		l, ok := lines[key]
		if !ok {
			l = &ocrLine{key: key}
			lines[key] = l
			order = append(order, key)
		}
		l.add(text, atoi(cols[colLeft]), atoi(cols[colTop]), atoi(cols[colWidth]), atoi(cols[colHeight]))

		if conf, err := strconv.ParseFloat(cols[colConf], 64); err == nil && conf >= 0 {
			confSum += conf
			confN++
		}
	}

	grouped := make([]*ocrLine, 0, len(order))
	for _, k := range order {
		grouped = append(grouped, lines[k])
	}
	slices.SortStableFunc(grouped, compareLines)

	out := make([]certificate.TextLine, 0, len(grouped))
	for _, l := range grouped {
		region := l.region
		out = append(out, certificate.TextLine{
			Content: strings.Join(l.words, " "),
			Index:   len(out),
			Source:  certificate.SourceOCR,
			Region:  &region,
		})
	}

	var conf float64
	if confN > 0 {
		conf = confSum / float64(confN) / 100
	}
	return out, conf
}

// compareLines orders by page, row bucket and then horizontal position:
// right edge first for Arabic lines, left edge first otherwise.
func compareLines(a, b *ocrLine) int {
	if c := cmp.Compare(a.key.page, b.key.page); c != 0 {
		return c
	}
	if c := cmp.Compare(a.region.Top/rowBucket, b.region.Top/rowBucket); c != 0 {
		return c
	}
	if isArabicLine(a) || isArabicLine(b) {
		return cmp.Compare(b.right, a.right)
	}
	return cmp.Compare(a.region.Left, b.region.Left)
}

func isArabicLine(l *ocrLine) bool {
	for _, w := range l.words {
		if arabic.ContainsArabic(w) {
			return true
		}
	}
	return false
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
