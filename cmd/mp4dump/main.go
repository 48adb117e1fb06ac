// Command mp4dump prints the box structure of an MP4 file, including the text
// atoms and Apple metadata keys of the movie header.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tetsuo/mp4meta/atom"
	"github.com/tetsuo/mp4meta/bmff"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <file.mp4>\n", os.Args[0])
		os.Exit(1)
	}
	if err := dump(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func dump(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}

	sc := bmff.NewScanner(f, fi.Size())
	for sc.Next() {
		e := sc.Entry()
		fmt.Printf("[%s] offset=%d size=%d%s\n", e.Type, e.Offset, e.Size, extendedMark(e.HeaderSize))
		if e.Type != bmff.TypeMoov {
			continue
		}
		if e.Size > bmff.MaxInMemory {
			return fmt.Errorf("moov of %d bytes: %w", e.Size, bmff.ErrUnsupported)
		}
		buf := make([]byte, e.Size)
		if err := sc.ReadBox(buf); err != nil {
			return fmt.Errorf("read moov: %w", err)
		}
		r := bmff.NewReader(buf)
		if r.Next() && r.Enter() {
			printChildren(&r, buf)
		}
	}
	return sc.Err()
}

func extendedMark(headerSize int) string {
	if headerSize == 16 {
		return " (64-bit size)"
	}
	return ""
}

func printChildren(r *bmff.Reader, buf []byte) {
	for r.Next() {
		printBox(r, buf)
		if r.Type() == bmff.TypeMeta || !bmff.IsContainerBox(r.Type()) {
			continue
		}
		if r.Enter() {
			printChildren(r, buf)
			r.Exit()
		}
	}
}

func printBox(r *bmff.Reader, buf []byte) {
	depth := r.Depth()
	indent := strings.Repeat("  ", depth)
	vf := ""
	if bmff.IsFullBox(r.Type()) {
		vf = fmt.Sprintf(" v=%d flags=0x%06x", r.Version(), r.Flags())
	}
	fmt.Printf("%s[%s] size=%d%s%s\n", indent, r.Type(), r.Size(), vf, boxInfo(r))

	switch {
	case r.Type() == bmff.TypeUdta:
		printTexts(buf, r.Offset()+r.HeaderSize(), r.End(), depth+1)
	case r.Type() == bmff.TypeMeta:
		printApple(r.RawBox(), depth+1)
	}
}

func boxInfo(r *bmff.Reader) string {
	switch r.Type() {
	case bmff.TypeMvhd:
		ts, dur, next := r.ReadMvhd()
		return fmt.Sprintf(" timescale=%d duration=%d nextTrackId=%d", ts, dur, next)
	case bmff.TypeTkhd:
		id, dur := r.ReadTkhd()
		return fmt.Sprintf(" trackId=%d duration=%d", id, dur)
	case bmff.TypeHdlr:
		return fmt.Sprintf(" type=%s name=%q", r.ReadHdlr(), r.ReadHdlrName())
	case bmff.TypeStco, bmff.TypeCo64:
		return chunkInfo(r)
	case bmff.TypeStsc, bmff.TypeStts, bmff.TypeStss:
		return fmt.Sprintf(" entries=%d", r.EntryCount())
	}
	if r.Type().IsTextAtom() {
		return " (text)"
	}
	return ""
}

// chunkInfo summarizes a stco or co64 table.
func chunkInfo(r *bmff.Reader) string {
	it := bmff.NewChunkOffsetIter(r.Data(), r.Type() == bmff.TypeCo64)
	bits := 32
	if it.Wide() {
		bits = 64
	}
	first, ok := it.Next()
	if !ok {
		return fmt.Sprintf(" entries=%d bits=%d", it.Count(), bits)
	}
	last := first
	for v, ok := it.Next(); ok; v, ok = it.Next() {
		last = v
	}
	return fmt.Sprintf(" entries=%d bits=%d first=%d last=%d", it.Count(), bits, first, last)
}

func printTexts(buf []byte, start, end, depth int) {
	texts := atom.ParseTexts(buf, start, end)
	indent := strings.Repeat("  ", depth)
	for _, tag := range sortedKeys(texts) {
		fmt.Printf("%s%s = %q\n", indent, tag, texts[tag])
	}
}

func printApple(meta []byte, depth int) {
	indent := strings.Repeat("  ", depth)
	values, err := atom.ParseMeta(meta)
	if err != nil {
		fmt.Printf("%s(no mdta keys: %v)\n", indent, err)
		return
	}
	for _, k := range sortedKeys(values) {
		fmt.Printf("%s%s = %q\n", indent, k, values[k])
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
