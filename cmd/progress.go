package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/sahib/dca/attack"
	"github.com/sahib/dca/spn"
	log "github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"
)

// progressObserver shows a bar over the subkey slots of an attack.
type progressObserver struct {
	shape    *spn.Shape
	progress *mpb.Progress
	bar      *mpb.Bar
	done     int
}

func newProgressObserver(w io.Writer, shape *spn.Shape) *progressObserver {
	width := terminalWidth(80) / 2
	if width > 64 {
		width = 64
	}

	progress := mpb.New(
		mpb.WithOutput(w),
		mpb.WithWidth(width),
	)

	bar := progress.AddBar(
		int64(shape.Subkeys()),
		mpb.PrependDecorators(
			decor.Name("subkeys "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)

	return &progressObserver{
		shape:    shape,
		progress: progress,
		bar:      bar,
	}
}

func (po *progressObserver) RoundStarted(round int, mask spn.Mask) {
	log.Debugf("attacking round %d with s-boxes %s", round, mask)
}

func (po *progressObserver) FragmentRecovered(cfg *attack.RoundConfiguration) {}

func (po *progressObserver) SubkeyRecovered(index int, key spn.Block) {
	po.done++
	po.bar.Increment()
}

// Finish fills up the bar if the attack stopped early and waits for the
// last render.
func (po *progressObserver) Finish() {
	if left := po.shape.Subkeys() - po.done; left > 0 {
		po.bar.IncrBy(left)
	}

	po.progress.Wait()
}

// printObserver is used when stderr is not a terminal.
type printObserver struct {
	w     io.Writer
	shape *spn.Shape
}

func (po *printObserver) RoundStarted(round int, mask spn.Mask) {}

func (po *printObserver) FragmentRecovered(cfg *attack.RoundConfiguration) {}

func (po *printObserver) SubkeyRecovered(index int, key spn.Block) {
	fmt.Fprintf(po.w, "recovered k%d = %s\n", index, color.CyanString(po.shape.FormatBits(key)))
}
