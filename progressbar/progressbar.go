// Package progressbar implements a console text progress indicator: a
// 50-character gauge with a centered title, written incrementally so
// repeated Progress calls only print the blocks gained since the last
// call.
package progressbar

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// Bar is the progress interface shared by Text and Dummy.
type Bar interface {
	// Progress updates the bar to count out of the final count set at
	// construction.
	Progress(count int)
}

// Text prints a textual representation of the current progress. Create
// it before a loop and call Progress inside with the running count; the
// number of characters printed per call corresponds to the progress
// gained since the previous call.
type Text struct {
	w          io.Writer
	finalCount int
	block      rune
	written    int
	done       bool
}

// NewText returns a bar writing to w that is full when Progress reaches
// finalCount, drawing with the given block character. A non-empty
// message is centered in the header. A non-positive finalCount disables
// the gauge entirely.
func NewText(w io.Writer, finalCount int, block rune, message string) *Text {
	t := &Text{w: w, finalCount: finalCount, block: block}
	if finalCount <= 0 {
		return t
	}

	title := "% Progress"
	if message != "" {
		title = message
	}
	fmt.Fprintf(w, "\n%s\n", CenterMessage(title, 50, "-", "", "1"))
	fmt.Fprint(w, "    1    2    3    4    5    6    7    8    9    0\n")
	fmt.Fprint(w, "----0----0----0----0----0----0----0----0----0----0\n")
	return t
}

// Progress updates the bar to count. Counts beyond the final count are
// clamped; the bar prints a newline exactly once when it completes.
func (t *Text) Progress(count int) {
	if t.finalCount <= 0 {
		return
	}
	if count > t.finalCount {
		count = t.finalCount
	}

	percent := int(math.Round(100 * float64(count) / float64(t.finalCount)))
	if percent < 1 {
		percent = 1
	}

	// The full bar is 50 characters, one per two percent.
	blocks := percent / 2
	if blocks > t.written {
		fmt.Fprint(t.w, strings.Repeat(string(t.block), blocks-t.written))
		t.written = blocks
	}
	if percent == 100 && !t.done {
		fmt.Fprint(t.w, "\n")
		t.done = true
	}
}

// Dummy is a no-op progress bar.
type Dummy struct{}

// NewDummy returns a bar that does nothing.
func NewDummy() *Dummy { return &Dummy{} }

// Progress implements Bar.
func (*Dummy) Progress(int) {}

// CenterMessage returns message centered to the given total length,
// surrounded by fill and bracketed by the left and right strings.
func CenterMessage(message string, length int, fill, left, right string) string {
	fillSize := length - (len(message) + 2) - len(left) - len(right)
	if fillSize < 0 {
		fillSize = 0
	}
	leftFill := fillSize/2 + fillSize%2
	rightFill := fillSize / 2
	return left + strings.Repeat(fill, leftFill) + " " + message + " " + strings.Repeat(fill, rightFill) + right
}
