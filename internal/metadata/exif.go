package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// IFD pointers are structural offsets, not metadata.
var skippedFields = map[exif.FieldName]bool{
	exif.ExifIFDPointer:             true,
	exif.GPSInfoIFDPointer:          true,
	exif.InteroperabilityIFDPointer: true,
}

var pointerIDs = map[uint16]bool{0x8769: true, 0x8825: true, 0xA005: true}

// tagCollector gathers named tags through Walk and remembers their ids so
// that unnamed tags can be added afterwards under their raw id.
type tagCollector struct {
	tags map[string]any
	gps  map[string]any

	namedMain map[uint16]bool
	namedGPS  map[uint16]bool
}

func newTagCollector() *tagCollector {
	return &tagCollector{
		tags:      map[string]any{},
		gps:       map[string]any{},
		namedMain: map[uint16]bool{},
		namedGPS:  map[uint16]bool{},
	}
}

func (c *tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag == nil {
		return nil
	}
	key := string(name)
	gps := strings.HasPrefix(key, "GPS")
	if gps {
		c.namedGPS[tag.Id] = true
	} else {
		c.namedMain[tag.Id] = true
	}
	if skippedFields[name] {
		return nil
	}
	if gps {
		c.gps[key] = tagValue(tag)
		return nil
	}
	c.tags[key] = tagValue(tag)
	return nil
}

// addUnnamed records the tags goexif has no name for. exif.Decode drops
// them, so IFD0 and the Exif and GPS sub-IFDs are read again here.
func (c *tagCollector) addUnnamed(x *exif.Exif) error {
	if x.Tiff == nil || len(x.Tiff.Dirs) == 0 {
		return nil
	}
	c.addDir(x.Tiff.Dirs[0], c.namedMain, c.tags)

	var errs []error
	for _, sub := range []struct {
		ptr   exif.FieldName
		named map[uint16]bool
		dst   map[string]any
	}{
		{exif.ExifIFDPointer, c.namedMain, c.tags},
		{exif.GPSInfoIFDPointer, c.namedGPS, c.gps},
	} {
		d, err := subDir(x, sub.ptr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if d != nil {
			c.addDir(d, sub.named, sub.dst)
		}
	}
	return errors.Join(errs...)
}

func (c *tagCollector) addDir(d *tiff.Dir, named map[uint16]bool, dst map[string]any) {
	for _, tag := range d.Tags {
		if tag == nil || pointerIDs[tag.Id] || named[tag.Id] {
			continue
		}
		dst[rawID(tag.Id)] = tagValue(tag)
	}
}

// subDir decodes the sub-IFD that ptr points at, or returns nil when the
// pointer is absent.
func subDir(x *exif.Exif, ptr exif.FieldName) (*tiff.Dir, error) {
	tag, err := x.Get(ptr)
	if err != nil {
		return nil, nil
	}
	offset, err := tag.Int64(0)
	if err != nil {
		return nil, nil
	}
	r := bytes.NewReader(x.Raw)
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to %s: %w", ptr, err)
	}
	d, _, err := tiff.DecodeDir(r, x.Tiff.Order)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ptr, err)
	}
	return d, nil
}

// readExif decodes the EXIF block from r. A missing EXIF segment yields no
// tags and no error. Non-critical decoder errors are returned alongside the
// tags that were read.
func readExif(r io.Reader) (tags, gps map[string]any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("decoder panic: %v", p)
		}
	}()

	x, derr := exif.Decode(r)
	if x == nil {
		if derr == nil || noExif(derr) {
			return nil, nil, nil
		}
		return nil, nil, derr
	}

	c := newTagCollector()
	if werr := x.Walk(c); werr != nil {
		return c.tags, c.gps, werr
	}
	if uerr := c.addUnnamed(x); uerr != nil {
		derr = errors.Join(derr, uerr)
	}
	if len(c.gps) > 0 {
		if lat, long, lerr := x.LatLong(); lerr == nil {
			c.gps["Latitude"] = lat
			c.gps["Longitude"] = long
		}
	}
	if derr != nil && !noExif(derr) {
		return c.tags, c.gps, derr
	}
	return c.tags, c.gps, nil
}

func noExif(err error) bool {
	return errors.Is(err, io.EOF) ||
		strings.Contains(err.Error(), "EOF") ||
		strings.Contains(err.Error(), "failed to find exif intro marker")
}

// rawID names a tag goexif does not know.
func rawID(id uint16) string {
	return fmt.Sprintf("0x%04X", id)
}

// tagValue keeps single numeric values native and renders the rest as text.
func tagValue(tag *tiff.Tag) any {
	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return cleanText(string(tag.Val))
		}
		return cleanText(s)
	case tiff.UndefVal:
		return cleanText(string(tag.Val))
	}

	if tag.Count != 1 {
		return tag.String()
	}
	switch tag.Format() {
	case tiff.IntVal:
		if v, err := tag.Int64(0); err == nil {
			return v
		}
	case tiff.RatVal:
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			return float64(num) / float64(den)
		}
	case tiff.FloatVal:
		if v, err := tag.Float(0); err == nil {
			return v
		}
	}
	return tag.String()
}

// cleanText drops invalid UTF-8 and NUL padding.
func cleanText(s string) string {
	s = strings.ToValidUTF8(s, "")
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}
