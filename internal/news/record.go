package news

import (
	"fmt"
	"regexp"
	"strings"
)

// RecordCount is the fixed number of news slots on the site.
const RecordCount = 4

// DocumentVersion is written to configuracion.version on every save.
const DocumentVersion = "1.0"

// TimestampLayout is the format of configuracion.ultima_actualizacion.
const TimestampLayout = "2006-01-02T15:04:05"

// Record is one news slot.
type Record struct {
	ID        int    `json:"id"`
	Titulo    string `json:"titulo"`
	Slug      string `json:"slug"`
	Resumen   string `json:"resumen"`
	Contenido string `json:"contenido"`
	Imagen    string `json:"imagen"`
	Categoria string `json:"categoria"`
	Destacada bool   `json:"destacada"`
	Fecha     string `json:"fecha"`
	Autor     string `json:"autor"`
}

// Configuracion is the document metadata, rewritten on every save.
type Configuracion struct {
	UltimaActualizacion string `json:"ultima_actualizacion"`
	Version             string `json:"version"`
}

// Document is the whole JSON file.
type Document struct {
	Noticias      []Record      `json:"noticias"`
	Configuracion Configuracion `json:"configuracion"`
}

// Find returns the index of record id, or -1.
func (d *Document) Find(id int) int {
	for i, r := range d.Noticias {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// Featured returns the featured record, if any.
func (d *Document) Featured() (Record, bool) {
	for _, r := range d.Noticias {
		if r.Destacada {
			return r, true
		}
	}
	return Record{}, false
}

// check verifies the shape the site relies on: a records array with
// distinct ids in range.
func (d *Document) check() error {
	if d.Noticias == nil {
		return fmt.Errorf("missing %q array", "noticias")
	}
	seen := make(map[int]bool, len(d.Noticias))
	for _, r := range d.Noticias {
		if !ValidID(r.ID) {
			return fmt.Errorf("record id %d out of range", r.ID)
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate record id %d", r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}

// ValidID reports whether id names one of the fixed slots.
func ValidID(id int) bool {
	return id >= 1 && id <= RecordCount
}

// Fields are the editable values of a record as submitted by the editor.
type Fields struct {
	Titulo    string
	Resumen   string
	Contenido string
	Categoria string
	Fecha     string
	Destacada bool
}

var (
	slugStrip    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugCollapse = regexp.MustCompile(`[\s-]+`)
)

// Slug derives the URL slug of a title. Characters outside [a-z0-9] are
// dropped rather than transliterated.
func Slug(titulo string) string {
	s := strings.ToLower(titulo)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
