package pubsplice

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 800
	jpegQuality   = 80
)

// processImage decodes an image from src, resizes it to maxImageWidth when
// wider, and encodes it as JPEG.
func processImage(src io.Reader) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// resolveCover turns the image reference of entry id into the address that
// goes into its markup. Remote addresses and addresses already under the site
// are kept. A local file is processed into images_dir (staged in cs) and
// addressed relative to the site's base URL.
func (p *Publisher) resolveCover(cs *ChangeSet, id, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || isRemote(ref) {
		return ref, nil
	}
	if base := p.cfg.Site.BaseURL; base != "" && strings.HasPrefix(ref, base) {
		return ref, nil
	}

	srcPath, err := expandPath(ref, p.cfg.Root)
	if err != nil {
		return "", err
	}
	f, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open cover image: %w", err)
	}
	defer f.Close()

	data, err := processImage(f)
	if err != nil {
		return "", fmt.Errorf("cover image %s: %w", srcPath, err)
	}

	name := Slugify(strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath)))
	if name == "" {
		name = "cover"
	}
	dest := filepath.Join(p.cfg.Paths.ImagesDir, fmt.Sprintf("%s-%s.jpg", name, shortID(id)))
	rel, err := filepath.Rel(p.cfg.Paths.OutputDir, dest)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("images_dir %s is not inside output_dir %s", p.cfg.Paths.ImagesDir, p.cfg.Paths.OutputDir)
	}

	cs.Write(dest, data)
	p.log.Info("cover image processed", "source", srcPath, "target", dest, "bytes", len(data))
	return p.cfg.Site.BaseURL + filepath.ToSlash(rel), nil
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
