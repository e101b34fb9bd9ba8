package reporter

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// runManifest describes an exported run archive: which run it came from and
// a checksum per artifact, so a recipient can verify the handoff.
type runManifest struct {
	LogID       string           `json:"log_id"`
	CreatedAt   time.Time        `json:"created_at"`
	ToolVersion string           `json:"tool_version"`
	Artifacts   []artifactRecord `json:"artifacts"`
}

type artifactRecord struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// ExportArchive zips the run's output directory as "<outputDir>.zip",
// appending a run_info.json manifest with a sha-256 per artifact. Returns
// the archive path.
func ExportArchive(outputDir, logID, toolVersion string) (string, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return "", fmt.Errorf("read output dir: %w", err)
	}

	zipPath := outputDir + ".zip"
	f, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	base := filepath.Base(outputDir)

	manifest := runManifest{
		LogID:       logID,
		CreatedAt:   time.Now().UTC(),
		ToolVersion: toolVersion,
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		rec, err := addArtifact(zw, outputDir, base, entry.Name())
		if err != nil {
			return "", err
		}
		manifest.Artifacts = append(manifest.Artifacts, rec)
	}

	mw, err := zw.Create(base + "/run_info.json")
	if err != nil {
		return "", fmt.Errorf("archive manifest: %w", err)
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return "", fmt.Errorf("archive manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalize archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("finalize archive: %w", err)
	}
	return zipPath, nil
}

// addArtifact streams one artifact into the archive, hashing as it copies.
func addArtifact(zw *zip.Writer, dir, base, name string) (artifactRecord, error) {
	src, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return artifactRecord{}, fmt.Errorf("archive %s: %w", name, err)
	}
	defer src.Close()

	dst, err := zw.Create(base + "/" + name)
	if err != nil {
		return artifactRecord{}, fmt.Errorf("archive %s: %w", name, err)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(dst, h), src)
	if err != nil {
		return artifactRecord{}, fmt.Errorf("archive %s: %w", name, err)
	}

	return artifactRecord{
		Name:   name,
		SHA256: hex.EncodeToString(h.Sum(nil)),
		Size:   n,
	}, nil
}
