package mailer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileSender appends every message to a local file.
type FileSender struct {
	mu       sync.Mutex
	filePath string
}

// NewFileSender ensures the directory for the file exists.
func NewFileSender(filePath string) (*FileSender, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("email file path cannot be empty")
	}
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for email file '%s': %w", dir, err)
	}
	return &FileSender{filePath: filePath}, nil
}

func (s *FileSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open email file: %w", err)
	}
	defer file.Close()

	entry := fmt.Sprintf("--- Email at %s (To: %s, Subject: %s) ---\n", time.Now().Format(time.RFC3339Nano), strings.Join(to, ", "), subject)
	buf := append([]byte(entry), rawMessage...)
	buf = append(buf, "\n--- End Email ---\n\n"...)

	if _, err := file.Write(buf); err != nil {
		return fmt.Errorf("failed to write email file: %w", err)
	}
	return nil
}
