package contact

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one line of the contact journal.
type Entry struct {
	Time     time.Time
	Nombre   string
	Email    string
	Telefono string
	Asunto   string
}

// Line formats e the way it is stored.
func (e Entry) Line() string {
	return fmt.Sprintf("[%s] Nombre: %s | Email: %s | Teléfono: %s | Asunto: %s\n",
		e.Time.Format("2006-01-02 15:04:05"), e.Nombre, e.Email, e.Telefono, e.Asunto)
}

// Journal records accepted submissions.
type Journal interface {
	Append(e Entry) error
}

// FileJournal appends to one file per calendar month,
// contactos_YYYY-MM.log under Dir.
type FileJournal struct {
	mu  sync.Mutex
	dir string
}

func NewFileJournal(dir string) *FileJournal {
	return &FileJournal{dir: dir}
}

// File returns the journal file that holds entries made at t.
func (j *FileJournal) File(t time.Time) string {
	return filepath.Join(j.dir, "contactos_"+t.Format("2006-01")+".log")
}

func (j *FileJournal) Append(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}
	f, err := os.OpenFile(j.File(e.Time), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if _, err := f.WriteString(e.Line()); err != nil {
		f.Close()
		return fmt.Errorf("append journal: %w", err)
	}
	return f.Close()
}
