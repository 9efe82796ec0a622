package transcript

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNoTranscript is returned when a zip export holds no .txt member.
var ErrNoTranscript = errors.New("no transcript text file in archive")

// Load reads a chat export from disk. Plain .txt exports are returned as-is;
// .zip exports (the "export chat with media" bundle) are searched for the chat
// text, preferring "_chat.txt". A leading UTF-8 byte order mark is removed.
func Load(p string) (string, error) {
	if strings.EqualFold(filepath.Ext(p), ".zip") {
		return loadZip(p)
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return stripBOM(string(data)), nil
}

func loadZip(p string) (string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	var pick *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(path.Ext(f.Name), ".txt") {
			continue
		}
		if path.Base(f.Name) == "_chat.txt" {
			pick = f
			break
		}
		if pick == nil {
			pick = f
		}
	}
	if pick == nil {
		return "", ErrNoTranscript
	}

	rc, err := pick.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", pick.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", pick.Name, err)
	}
	return stripBOM(string(data)), nil
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
