package ingest

import (
	"io"
	"strings"
	"testing"

	"github.com/username/assetfolio/backend/src/logger"
)

func TestCheckExtractContent(t *testing.T) {
	logger.InitLogger("error")

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"plain csv", "account_number,principal\n1111,1000\n", false},
		{"empty file", "", true},
		{"null bytes", "account\x00number", true},
		{"invalid utf-8", "account,\xff\xfe\n", true},
		{"rune split at buffer boundary", strings.Repeat("a", 1023) + "한국,1000\n", false},
		{"invalid utf-8 beyond a full buffer", strings.Repeat("a", 500) + "\xff" + strings.Repeat("a", 600), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := strings.NewReader(tt.content)
			err := checkExtractContent(r)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkExtractContent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if pos, _ := r.Seek(0, io.SeekCurrent); err == nil && pos != 0 {
				t.Errorf("Read pointer not reset, at offset %d", pos)
			}
		})
	}
}
