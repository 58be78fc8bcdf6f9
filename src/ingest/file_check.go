// backend/src/ingest/file_check.go
package ingest

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/username/assetfolio/backend/src/logger"
)

// checkExtractContent inspects the head of a batch extract file before
// it reaches the CSV reader. Empty files and binary content (null
// bytes, invalid UTF-8) are stage-fatal: they mean the extract job
// delivered garbage, not that a row is bad. The read pointer is reset
// afterwards so the caller parses the full file.
func checkExtractContent(file io.ReadSeeker) error {
	buffer := make([]byte, 1024)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading extract head: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("resetting extract read pointer: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("extract file is empty")
	}
	head := buffer[:n]
	if bytes.IndexByte(head, 0) != -1 {
		logger.L.Warn("Extract file rejected, binary content detected")
		return fmt.Errorf("extract file contains binary content")
	}
	// A full read may have cut a multibyte rune at the buffer boundary.
	// Trim at most one incomplete trailing sequence so a clean UTF-8
	// extract is not misread as binary.
	if n == len(buffer) {
		for i := 0; i < utf8.UTFMax-1 && !utf8.Valid(head); i++ {
			head = head[:len(head)-1]
		}
	}
	if !utf8.Valid(head) {
		logger.L.Warn("Extract file rejected, binary content detected")
		return fmt.Errorf("extract file contains binary content")
	}
	return nil
}
