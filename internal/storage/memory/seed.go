package memory

import "gastos/internal/core"

// DefaultCategories mirrors the directory seeded by the SQLite migrations.
func DefaultCategories() []core.Category {
	return []core.Category{
		{Name: "comida", Keywords: []string{"comida", "tacos", "tortas", "pizza", "hamburguesa", "sushi", "desayuno", "almuerzo", "cena", "cafe", "restaurante", "super", "mandado"}},
		{Name: "compras", Keywords: []string{"ropa", "zapatos", "regalo", "celular", "tienda"}},
		{Name: "educacion", Keywords: []string{"libro", "curso", "colegiatura", "escuela", "utiles"}},
		{Name: "entretenimiento", Keywords: []string{"cine", "netflix", "spotify", "concierto", "juego", "fiesta", "cerveza"}},
		{Name: "hogar", Keywords: []string{"renta", "muebles", "limpieza", "reparacion"}},
		{Name: core.OtherCategory},
		{Name: "salud", Keywords: []string{"farmacia", "doctor", "medicina", "dentista", "consulta", "gimnasio"}},
		{Name: "servicios", Keywords: []string{"luz", "agua", "pipa de gas", "internet", "telefono", "recibo"}},
		{Name: "transporte", Keywords: []string{"gasolina", "uber", "taxi", "camion", "metro", "estacionamiento", "caseta"}},
	}
}
