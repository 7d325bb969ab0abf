package main

import (
	"path/filepath"
	"strings"

	contractos "github.com/sohamzycus/contractos"
)

func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return contractos.FileFormatPdf
	default:
		return contractos.FileFormatDocx
	}
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func docIDs(raw []string) []contractos.DocumentID {
	out := make([]contractos.DocumentID, len(raw))
	for i, id := range raw {
		out[i] = contractos.DocumentID(id)
	}
	return out
}
