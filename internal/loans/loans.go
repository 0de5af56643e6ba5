// Package loans computes indicative loan payments and lists the documents
// each service asks for.
package loans

import (
	"errors"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrInvalidAmount = errors.New("el monto debe ser mayor a cero")
	ErrInvalidTerm   = errors.New("la cantidad de cuotas debe estar entre 1 y 120")
	ErrInvalidRate   = errors.New("la tasa no puede ser negativa")
)

// MaxTerm bounds the number of monthly installments.
const MaxTerm = 120

var printer = message.NewPrinter(language.MustParse("es-AR"))

// Quote is a French-amortization installment plan.
type Quote struct {
	Cuota   float64 `json:"cuota"`
	Total   float64 `json:"total"`
	Interes float64 `json:"interes"`
}

// Compute returns the fixed monthly payment for amount over months at the
// given nominal annual rate, in percent.
func Compute(amount float64, months int, annualRatePct float64) (Quote, error) {
	switch {
	case !(amount > 0) || math.IsInf(amount, 0):
		return Quote{}, ErrInvalidAmount
	case months <= 0 || months > MaxTerm:
		return Quote{}, ErrInvalidTerm
	case annualRatePct < 0 || math.IsNaN(annualRatePct) || math.IsInf(annualRatePct, 0):
		return Quote{}, ErrInvalidRate
	}

	var cuota float64
	if annualRatePct == 0 {
		cuota = amount / float64(months)
	} else {
		r := annualRatePct / 100 / 12
		f := math.Pow(1+r, float64(months))
		cuota = amount * r * f / (f - 1)
	}
	total := cuota * float64(months)
	return Quote{
		Cuota:   round2(cuota),
		Total:   round2(total),
		Interes: round2(total - amount),
	}, nil
}

// Display formats the installment the way the site shows prices.
func (q Quote) Display() string {
	return printer.Sprintf("$ %.2f/mes", q.Cuota)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var requirements = map[string][]string{
	"prestamos": {"DNI", "Recibo de sueldo", "Servicio", "CBU"},
	"subsidios": {"DNI", "Documentación específica del subsidio"},
	"seguros":   {"DNI", "Formulario de adhesión"},
	"turismo":   {"DNI", "Seña del 30%"},
}

// Requirements lists the documents needed to apply for service. Unknown
// services need nothing listed.
func Requirements(service string) []string {
	docs := requirements[service]
	out := make([]string, len(docs))
	copy(out, docs)
	return out
}
