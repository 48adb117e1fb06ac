package atom

import (
	"fmt"
	"strings"

	"github.com/tetsuo/mp4meta/bmff"
)

// dataTypeUTF8 is the well-known type indicator of a UTF-8 data box.
const dataTypeUTF8 = 1

// Entry is one key/value pair of an Apple mdta metadata box.
type Entry struct {
	Key   string
	Value string
}

// AppleEntries selects the atoms that have an mdta key, in table order. When
// a model is present two camera keys are appended so photo galleries can show
// a camera and lens line.
func AppleEntries(atoms map[string]string) []Entry {
	var entries []Entry
	for _, m := range appleKeys {
		if v := atoms[m.tag]; v != "" {
			entries = append(entries, Entry{Key: m.key, Value: v})
		}
	}
	if len(entries) == 0 {
		return nil
	}
	if model := atoms[TagModel]; model != "" {
		entries = append(entries,
			Entry{Key: KeyCameraIdentifier, Value: model},
			Entry{Key: KeyLensModel, Value: strings.TrimSpace(atoms[TagMake] + " " + model)},
		)
	}
	return entries
}

// BuildMeta builds a complete meta box (version 0, handler mdta) carrying
// the Apple entries derived from atoms. It returns nil when no atom maps to an
// mdta key.
//
//	meta
//	├── hdlr  handler 'mdta', empty name
//	├── keys  entry count, then [size]['mdta'][key] per entry
//	└── ilst  per entry: [size][1-based index] wrapping
//	          [size]['data'][type=1][locale=0][value]
func BuildMeta(atoms map[string]string) []byte {
	entries := AppleEntries(atoms)
	if len(entries) == 0 {
		return nil
	}

	w := bmff.NewWriter(make([]byte, 0, 256))
	w.StartFullBox(bmff.TypeMeta, 0, 0)
	w.WriteHdlr(bmff.TypeMdta, "")

	w.StartFullBox(bmff.TypeKeys, 0, 0)
	w.PutUint32(uint32(len(entries)))
	for _, e := range entries {
		w.StartBox(bmff.TypeMdta)
		w.PutBytes([]byte(e.Key))
		w.EndBox()
	}
	w.EndBox()

	w.StartBox(bmff.TypeIlst)
	for i, e := range entries {
		w.StartBox(bmff.TypeFromUint32(uint32(i + 1)))
		w.StartBox(bmff.TypeData)
		w.PutUint32(dataTypeUTF8)
		w.PutUint32(0) // locale
		w.PutBytes([]byte(e.Value))
		w.EndBox()
		w.EndBox()
	}
	w.EndBox()

	w.EndBox()
	return w.Bytes()
}

// ParseMeta decodes the keys and ilst children of a raw meta box into a
// key/value map. Both the ISO layout (version and flags before the children)
// and the QuickTime layout (children directly after the header) are accepted.
// Items with a non-UTF-8 type indicator or an index outside the key table are
// skipped.
func ParseMeta(meta []byte) (map[string]string, error) {
	r := bmff.NewReader(meta)
	if !r.Next() || r.Type() != bmff.TypeMeta {
		return nil, fmt.Errorf("meta: %w", bmff.ErrMalformed)
	}
	start := r.Offset() + r.HeaderSize()
	end := r.End()
	if end-start >= 8 && bmff.TypeAt(meta, start+4) != bmff.TypeHdlr {
		start += 4 // version and flags
	}

	keysBox, ok := bmff.FindBox(meta, start, end, bmff.TypeKeys)
	if !ok {
		return nil, fmt.Errorf("meta keys: %w", bmff.ErrNotFound)
	}
	keys, err := parseKeys(meta[keysBox.Offset:keysBox.End()])
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(keys))
	ilst, ok := bmff.FindBox(meta, start, end, bmff.TypeIlst)
	if !ok {
		return out, nil
	}
	items := bmff.NewRangeReader(meta, ilst.PayloadOffset(), ilst.End())
	for items.Next() {
		idx := int(items.Type().Uint32())
		if idx < 1 || idx > len(keys) {
			continue
		}
		d, ok := bmff.FindBox(meta, items.Offset()+items.HeaderSize(), items.End(), bmff.TypeData)
		if !ok || d.Size < d.HeaderSize+8 {
			continue
		}
		p := meta[d.PayloadOffset():d.End()]
		if bmff.Uint32At(p, 0) != dataTypeUTF8 {
			continue
		}
		out[keys[idx-1]] = string(p[8:])
	}
	return out, nil
}

// parseKeys returns the key strings of a keys box in index order.
func parseKeys(box []byte) ([]string, error) {
	r := bmff.NewReader(box)
	if !r.Next() || len(r.Data()) < 4 {
		return nil, fmt.Errorf("keys: %w", bmff.ErrMalformed)
	}
	count := int(r.EntryCount())
	keys := make([]string, 0, min(count, 256))
	r.Enter()
	r.Skip(4)
	for len(keys) < count && r.Next() {
		p := r.Payload()
		keys = append(keys, string(p))
	}
	if len(keys) != count {
		return nil, fmt.Errorf("keys: %d of %d entries present: %w", len(keys), count, bmff.ErrMalformed)
	}
	return keys, nil
}
