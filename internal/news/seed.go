package news

// DefaultRecords fills the four slots of a fresh installation.
func DefaultRecords() []Record {
	return []Record{
		{
			ID:        1,
			Titulo:    "Nueva Línea de Préstamos Especiales",
			Resumen:   "Lanzamos una nueva línea de préstamos con tasas preferenciales para jubilados y pensionados.",
			Contenido: "Desde este mes los asociados jubilados y pensionados pueden acceder a préstamos personales con tasas preferenciales y cuotas fijas. Acercate a cualquiera de nuestras sucursales con tu último recibo de haberes.",
			Categoria: "Préstamos",
			Destacada: true,
			Fecha:     "2024-03-15",
		},
		{
			ID:        2,
			Titulo:    "Apertura de Sucursal en Pocito",
			Resumen:   "Inauguramos nuestra tercera sucursal en el departamento de Pocito para estar más cerca de vos.",
			Contenido: "La nueva sucursal atiende de lunes a viernes de 8:00 a 14:00 y ofrece todos los servicios de la mutual: préstamos, subsidios, seguros y turismo.",
			Categoria: "Institucional",
			Fecha:     "2024-03-10",
		},
		{
			ID:        3,
			Titulo:    "Convenio con Centros Turísticos",
			Resumen:   "Firmamos convenios con importantes centros turísticos para ofrecer descuentos exclusivos.",
			Contenido: "Los asociados acceden a descuentos en alojamiento y excursiones presentando su credencial. Consultá el listado completo de destinos en la sección de turismo.",
			Categoria: "Turismo",
			Fecha:     "2024-03-05",
		},
		{
			ID:        4,
			Titulo:    "Beneficios Especiales 2024",
			Resumen:   "Nuevos beneficios para nuestros asociados.",
			Contenido: "Ampliamos los subsidios por nacimiento, casamiento y fallecimiento, y sumamos nuevas coberturas de seguros para el grupo familiar.",
			Categoria: "Beneficios",
			Fecha:     "2024-03-01",
		},
	}
}
