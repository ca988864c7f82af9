package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// minLength guards against empty or truncated transcript files.
const minLength = 100

// Transcript is one loaded podcast transcript.
type Transcript struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	WordCount int       `json:"word_count"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Load reads a transcript file from disk.
func Load(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if len(content) < minLength {
		return nil, fmt.Errorf("transcript %s too short: %d chars", path, len(content))
	}

	return &Transcript{
		Path:      path,
		Name:      filepath.Base(path),
		Content:   content,
		WordCount: len(strings.Fields(content)),
		LoadedAt:  time.Now(),
	}, nil
}

// EpisodeID derives a stable episode identifier from a transcript
// filename.
func EpisodeID(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ToLower(base)

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
