/*
PURPOSE:
  Best-effort metadata extraction for a single image file: filename, size,
  dimensions, embedded EXIF tags and GPS sub-fields.

REQUIREMENTS:
  User-specified:
  - Never fail the caller. Errors end up in ExtractionError.
  - GPS fields nested under their semantic names.

  Implementation-discovered:
  - x/image/webp rejects some extended WebP files; chai2010/webp reads them.
  - goexif reports "no EXIF segment" as an error; that is not a failure here.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (Runner phases 1 and 2)
  - Produces: internal/model.ImageMetadata

ERROR HANDLING:
  - Stat/open/decode/EXIF failures are joined with "; " into ExtractionError.
  - Panics inside the EXIF decoder are recovered and recorded.

USAGE:
  ex := metadata.New(".")
  md := ex.Extract("test_images/a.jpg")

RELATED FILES:
  - internal/metadata/exif.go
*/

package metadata

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/daryltucker/tag-runner/internal/model"
)

const bytesPerMB = 1024 * 1024

// Extractor reads metadata for image files. Relative paths are computed
// against BaseDir.
type Extractor struct {
	BaseDir string
}

// New creates an Extractor rooted at baseDir.
func New(baseDir string) *Extractor {
	return &Extractor{BaseDir: baseDir}
}

// Relative returns path relative to base, or path unchanged when that is not possible.
func Relative(base, path string) string {
	if base == "" {
		return path
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return path
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// RelativePath returns path relative to the extractor's base directory.
func (e *Extractor) RelativePath(path string) string {
	return Relative(e.BaseDir, path)
}

// Extract returns whatever metadata can be recovered from path.
func (e *Extractor) Extract(path string) (md model.ImageMetadata) {
	md = model.ImageMetadata{
		Filename:     filepath.Base(path),
		RelativePath: e.RelativePath(path),
	}
	var errs []string
	defer func() {
		md.ExtractionError = strings.Join(errs, "; ")
	}()

	info, err := os.Stat(path)
	if err != nil {
		errs = append(errs, err.Error())
		return md
	}
	md.FileSizeMB = float64(info.Size()) / bytesPerMB

	f, err := os.Open(path)
	if err != nil {
		errs = append(errs, err.Error())
		return md
	}
	defer f.Close()

	cfg, format, err := decodeConfig(f, path)
	if err != nil {
		errs = append(errs, fmt.Sprintf("read dimensions: %v", err))
	} else {
		md.Dimensions = fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)
		md.Format = format
	}

	if !carriesExif(format, path) {
		return md
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		errs = append(errs, err.Error())
		return md
	}
	tags, gps, err := readExif(f)
	if len(tags) > 0 {
		md.CapturedTags = tags
	}
	if len(gps) > 0 {
		md.GPS = gps
	}
	if err != nil {
		errs = append(errs, fmt.Sprintf("exif: %v", err))
	}
	return md
}

func decodeConfig(f *os.File, path string) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(f)
	if err == nil || !hasExt(path, ".webp") {
		return cfg, format, err
	}
	if _, serr := f.Seek(0, io.SeekStart); serr != nil {
		return cfg, format, err
	}
	cfg, werr := webp.DecodeConfig(f)
	if werr != nil {
		return cfg, "", err
	}
	return cfg, "webp", nil
}

// carriesExif reports whether goexif can read the container. When the format
// could not be sniffed the extension decides.
func carriesExif(format, path string) bool {
	switch format {
	case "jpeg", "tiff":
		return true
	case "":
		return hasExt(path, ".jpg", ".jpeg", ".tif", ".tiff")
	}
	return false
}

func hasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
