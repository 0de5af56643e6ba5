package admin

import (
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mutualangaco/sitio/internal/news"
)

const gridColumns = 2

var (
	colorPrimary = lipgloss.Color("#28C4D8")
	colorAccent  = lipgloss.Color("#5DD902")
	colorDark    = lipgloss.Color("#005958")
	colorError   = lipgloss.Color("#D8283B")
	colorMuted   = lipgloss.Color("#888888")

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1).
			Width(40)

	featuredCardStyle = cardStyle.BorderForeground(colorAccent)

	numberStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorDark)
	categoryStyle = lipgloss.NewStyle().Foreground(colorPrimary)
	titleStyle    = lipgloss.NewStyle().Bold(true)
	metaStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	badgeStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	successStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
)

var meses = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// LongDate renders "2024-03-15" as "15 de marzo de 2024". Other values are
// returned as they are.
func LongDate(fecha string) string {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(fecha))
	if err != nil {
		return fecha
	}
	return fmt.Sprintf("%d de %s de %d", t.Day(), meses[t.Month()-1], t.Year())
}

// Card renders one record.
func Card(r news.Record) string {
	lines := []string{
		numberStyle.Render(fmt.Sprintf("#%d", r.ID)) + "  " + categoryStyle.Render(html.UnescapeString(r.Categoria)),
		titleStyle.Render(html.UnescapeString(r.Titulo)),
		html.UnescapeString(r.Resumen),
		metaStyle.Render(LongDate(r.Fecha) + " · " + html.UnescapeString(r.Autor)),
	}
	style := cardStyle
	if r.Destacada {
		lines = append(lines, badgeStyle.Render("★ Destacada"))
		style = featuredCardStyle
	}
	return style.Render(strings.Join(lines, "\n"))
}

// RenderGrid writes the records as a grid of cards in stored order.
func RenderGrid(w io.Writer, records []news.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, metaStyle.Render("No hay noticias cargadas."))
		return err
	}

	var rows []string
	for i := 0; i < len(records); i += gridColumns {
		end := min(i+gridColumns, len(records))
		cards := make([]string, 0, gridColumns)
		for _, r := range records[i:end] {
			cards = append(cards, Card(r))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, rows...))
	return err
}

// Detail renders every field of one record.
func Detail(r news.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", titleStyle.Render(html.UnescapeString(r.Titulo)))
	field := func(name, value string) {
		fmt.Fprintf(&b, "%s %s\n", metaStyle.Render(name+":"), value)
	}
	field("ID", fmt.Sprint(r.ID))
	field("Slug", r.Slug)
	field("Categoría", html.UnescapeString(r.Categoria))
	field("Fecha", LongDate(r.Fecha))
	field("Autor", html.UnescapeString(r.Autor))
	field("Imagen", r.Imagen)
	if r.Destacada {
		field("Destacada", "sí")
	} else {
		field("Destacada", "no")
	}
	fmt.Fprintf(&b, "\n%s\n\n%s\n", html.UnescapeString(r.Resumen), html.UnescapeString(r.Contenido))
	return b.String()
}

func successBanner(msg string) string { return successStyle.Render("✔ " + msg) }

func errorBanner(msg string) string { return errorStyle.Render("✖ " + msg) }
