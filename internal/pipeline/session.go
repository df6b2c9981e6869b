package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"clipsight/internal/services"
)

// session is the per-attempt workspace. Every attempt gets a fresh directory
// under the staging root so retries never see a previous attempt's files.
type session struct {
	ID  string
	Dir string
}

func newSession(stagingDir string) (*session, error) {
	id := uuid.NewString()
	dir := filepath.Join(stagingDir, "job-"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "session",
			fmt.Sprintf("create session directory %s", dir), err)
	}
	return &session{ID: id, Dir: dir}, nil
}

// Cleanup removes the workspace. Callers defer it on every exit path; a
// failure here must never mask the attempt's outcome.
func (s *session) Cleanup() error {
	if s == nil || s.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(s.Dir); err != nil {
		return services.Wrap(services.ErrCleanup, "pipeline", "cleanup",
			fmt.Sprintf("remove session directory %s", s.Dir), err)
	}
	return nil
}

// AudioPath is where the extracted mono WAV for this session lives.
func (s *session) AudioPath() string {
	return filepath.Join(s.Dir, "audio.wav")
}
