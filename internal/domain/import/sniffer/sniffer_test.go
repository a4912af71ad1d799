package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect_ByExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"extrato.ofx", FormatOFX},
		{"extrato.OFX", FormatOFX},
		{"movimentos.csv", FormatDelimited},
		{"movimentos.txt", FormatDelimited},
		{"caixa.xlsx", FormatSheet},
		{"caixa.xls", FormatSheet},
		{"convenios.zip", FormatArchive},
		{"comprovante.pdf", FormatScanned},
		{"recibo.jpg", FormatScanned},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.filename, nil))
		})
	}
}

func TestDetect_ByMagic(t *testing.T) {
	t.Run("pdf", func(t *testing.T) {
		assert.Equal(t, FormatScanned, Detect("upload", []byte("%PDF-1.7 ...")))
	})

	t.Run("ole legacy xls", func(t *testing.T) {
		assert.Equal(t, FormatSheet, Detect("upload", []byte{0xD0, 0xCF, 0x11, 0xE0, 0x00}))
	})

	t.Run("zip with xlsx marker is a spreadsheet", func(t *testing.T) {
		payload := append([]byte("PK\x03\x04"), []byte("...[Content_Types].xml...")...)
		assert.Equal(t, FormatSheet, Detect("upload", payload))
	})

	t.Run("plain zip is an archive", func(t *testing.T) {
		payload := append([]byte("PK\x03\x04"), []byte("entry data")...)
		assert.Equal(t, FormatArchive, Detect("upload", payload))
	})

	t.Run("ofx header", func(t *testing.T) {
		assert.Equal(t, FormatOFX, Detect("upload", []byte("OFXHEADER:100\nDATA:OFXSGML\n")))
	})

	t.Run("unrecognized", func(t *testing.T) {
		assert.Equal(t, FormatUnknown, Detect("upload", []byte("hello world")))
	})
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ';', DetectDelimiter("Data;Descrição;Valor"))
	assert.Equal(t, ',', DetectDelimiter("Date,Description,Amount"))
	assert.Equal(t, ';', DetectDelimiter("Data;Descrição,Extra;Valor"))
}

func TestHeaderLine(t *testing.T) {
	data := []byte("\xEF\xBB\xBF\r\n\r\nData;Valor\r\n01/03/2025;10,00\r\n")
	assert.Equal(t, "Data;Valor", HeaderLine(data))
}
