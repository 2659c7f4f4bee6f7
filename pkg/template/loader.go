// loader.go - Load template manifests, template packs (ZIP), and carousel
// request files.
package template

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadManifest reads and validates a templates.yaml file from fsys.
func LoadManifest(fsys fs.FS, name string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	for i := range m.Templates {
		d := &m.Templates[i]
		if d.ID == "" {
			return nil, fmt.Errorf("%s: template %d has no id", name, i)
		}
		applyDescriptorDefaults(d)
	}
	return &m, nil
}

// applyDescriptorDefaults fills the fields a manifest may leave out.
func applyDescriptorDefaults(d *Descriptor) {
	if d.Name == "" {
		d.Name = d.ID
	}
	if d.File == "" {
		d.File = d.ID + ".jpg"
	}
	if d.Category == "" {
		d.Category = CategoryAbstract
	}
	if d.TextColor == "" {
		d.TextColor = TextDark
	}
	if d.Accent == "" {
		d.Accent = DefaultAccent
	}
	if d.Anchor <= 0 {
		d.Anchor = DiscoveredAnchor
	}
}

// LoadPack extracts a template pack (a ZIP holding background images and an
// optional templates.yaml) to a temp directory and returns its path.
// The returned cleanup function removes the directory.
func LoadPack(path string) (string, func(), error) {
	noop := func() {}

	r, err := zip.OpenReader(path)
	if err != nil {
		return "", noop, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	tmpDir, err := os.MkdirTemp("", "carousel-pack-*")
	if err != nil {
		return "", noop, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	if err := extractZip(&r.Reader, tmpDir); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("extract %s: %w", path, err)
	}

	return tmpDir, cleanup, nil
}

// LoadSpec reads a carousel request from a JSON or YAML file, chosen by
// extension. A bare list of strings is accepted as the slides of a request
// with no other settings.
func LoadSpec(path string) (*CarouselSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseSpecYAML(data)
	default:
		return ParseSpec(data)
	}
}

// extractZip extracts all files from a zip reader into destDir.
func extractZip(r *zip.Reader, destDir string) error {
	for _, f := range r.File {
		target := filepath.Join(destDir, f.Name)

		// Guard against zip slip.
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal path in zip: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}

		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

// extractFile writes a single zip entry to disk.
func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

// decodeSlidesOnly accepts `["slide one", "slide two"]`.
func decodeSlidesOnly(data []byte) (*CarouselSpec, bool) {
	var slides []string
	if err := json.Unmarshal(data, &slides); err != nil {
		return nil, false
	}
	return &CarouselSpec{Slides: slides}, true
}
