// Package sniffer routes uploaded files to the right dialect parser.
// Detection is by file extension first; content magic only breaks ties for
// extensionless uploads. An unrecognized file fails the whole import rather
// than guessing.
package sniffer

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Format identifies which dialect parser should handle a file.
type Format string

const (
	FormatOFX       Format = "OFX_DIALECT"
	FormatDelimited Format = "DELIMITED_TEXT"
	FormatSheet     Format = "SPREADSHEET"
	FormatArchive   Format = "SPREADSHEET_ARCHIVE"
	FormatScanned   Format = "SCANNED_DOCUMENT"
	FormatUnknown   Format = "UNRECOGNIZED"
)

var (
	magicZIP = []byte("PK\x03\x04")
	magicPDF = []byte("%PDF")
	magicOLE = []byte{0xD0, 0xCF, 0x11, 0xE0}
)

// Detect inspects a file name and payload and picks the dialect.
func Detect(filename string, payload []byte) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ofx":
		return FormatOFX
	case ".csv", ".txt", ".tsv":
		return FormatDelimited
	case ".xls", ".xlsx":
		return FormatSheet
	case ".zip":
		return FormatArchive
	case ".pdf", ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		return FormatScanned
	}

	// No usable extension: fall back to content magic.
	switch {
	case bytes.HasPrefix(payload, magicPDF):
		return FormatScanned
	case bytes.HasPrefix(payload, magicOLE):
		return FormatSheet
	case bytes.HasPrefix(payload, magicZIP):
		// Both .xlsx and plain archives are zip containers; an xlsx always
		// carries a [Content_Types].xml entry near the front.
		if bytes.Contains(payload[:min(len(payload), 4096)], []byte("[Content_Types].xml")) {
			return FormatSheet
		}
		return FormatArchive
	case looksLikeOFX(payload):
		return FormatOFX
	}

	return FormatUnknown
}

func looksLikeOFX(payload []byte) bool {
	head := payload[:min(len(payload), 2048)]
	return bytes.Contains(head, []byte("OFXHEADER")) || bytes.Contains(head, []byte("<OFX>"))
}

// DetectDelimiter picks the field separator for a delimited-text header
// line: ';' wins when present, else ','.
func DetectDelimiter(headerLine string) rune {
	if strings.ContainsRune(headerLine, ';') {
		return ';'
	}
	return ','
}

// HeaderLine returns the first non-empty line of a text payload with BOM
// and trailing CR stripped.
func HeaderLine(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimPrefix(strings.TrimRight(line, "\r"), "\uFEFF")
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
