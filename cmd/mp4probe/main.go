// Command mp4probe reports the tracks and chunk offset tables of an MP4 file
// and predicts how a metadata write of a given size would be committed.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/tetsuo/mp4meta/bmff"
	"github.com/tetsuo/mp4meta/internal/commit"
)

func main() {
	grow := flag.Int64("grow", 256, "bytes the movie header grows by in the prediction")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-grow n] <file.mp4>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	if err := probe(flag.Arg(0), *grow); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func probe(path string, grow int64) error {
	f, err := commit.Open(path, false)
	if err != nil {
		return err
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		return err
	}
	moov, err := bmff.Find(f, size, bmff.TypeMoov)
	if err != nil {
		return fmt.Errorf("moov: %w", err)
	}

	parsed, err := mp4.DecodeFile(io.NewSectionReader(f, 0, size), mp4.WithDecodeMode(mp4.DecModeLazyMdat))
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if parsed.Moov == nil {
		return fmt.Errorf("moov: %w", bmff.ErrNotFound)
	}

	fmt.Printf("file: %d bytes, moov at %d (%d bytes)\n", size, moov.Offset, moov.Size)
	if parsed.Moov.Mvhd != nil {
		fmt.Printf("movie: timescale=%d duration=%d\n", parsed.Moov.Mvhd.Timescale, parsed.Moov.Mvhd.Duration)
	}
	fmt.Println()

	for i, trak := range parsed.Moov.Traks {
		printTrack(i, trak, uint64(moov.End()))
	}

	plan, err := commit.Choose(f, moov.Offset, moov.End(), moov.Size+grow)
	if err != nil {
		return err
	}
	fmt.Printf("a %+d byte header change commits with %s", grow, plan.Strategy)
	if plan.Strategy == commit.ShiftTail {
		fmt.Printf(" (%d bytes of media move)", size-moov.End())
	}
	fmt.Println()
	return nil
}

func printTrack(i int, trak *mp4.TrakBox, pivot uint64) {
	id := uint32(0)
	if trak.Tkhd != nil {
		id = trak.Tkhd.TrackID
	}
	fmt.Printf("Track %d (id %d)", i, id)
	if trak.Mdia == nil {
		fmt.Println()
		return
	}
	if trak.Mdia.Hdlr != nil {
		fmt.Printf(": %s", trak.Mdia.Hdlr.HandlerType)
	}
	fmt.Println()
	if md := trak.Mdia.Mdhd; md != nil && md.Timescale > 0 {
		fmt.Printf("  Duration: %.2fs\n", float64(md.Duration)/float64(md.Timescale))
		fmt.Printf("  TimeScale: %d\n", md.Timescale)
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		fmt.Println()
		return
	}
	stbl := trak.Mdia.Minf.Stbl

	var offsets []uint64
	switch {
	case stbl.Stco != nil:
		fmt.Printf("  Chunk offsets: stco, %d entries\n", len(stbl.Stco.ChunkOffset))
		for _, o := range stbl.Stco.ChunkOffset {
			offsets = append(offsets, uint64(o))
		}
	case stbl.Co64 != nil:
		fmt.Printf("  Chunk offsets: co64, %d entries\n", len(stbl.Co64.ChunkOffset))
		offsets = stbl.Co64.ChunkOffset
	default:
		fmt.Println("  Chunk offsets: none")
	}
	if len(offsets) > 0 {
		after := 0
		for _, o := range offsets {
			if o >= pivot {
				after++
			}
		}
		fmt.Printf("  First: %d, last: %d, after moov: %d\n", offsets[0], offsets[len(offsets)-1], after)
	}
	fmt.Println()
}
