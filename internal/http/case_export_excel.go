package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gevengood/red-esperanza-backend/internal/domain"

	"github.com/xuri/excelize/v2"
)

const caseExportSheet = "Casos"

// caseExportColumn one spreadsheet column: header, width and cell value.
type caseExportColumn struct {
	header string
	width  float64
	value  func(c *domain.Case) any
}

var caseExportColumns = []caseExportColumn{
	{"ID Caso", 38, func(c *domain.Case) any { return c.ID }},
	{"Estado", 20, func(c *domain.Case) any { return string(c.EstadoCaso) }},
	{"Nombre Desaparecido", 28, func(c *domain.Case) any { return c.NombreDesaparecido }},
	{"Edad", 8, func(c *domain.Case) any { return c.EdadDesaparecido }},
	{"Sexo", 12, func(c *domain.Case) any { return string(c.SexoDesaparecido) }},
	{"Fecha Desaparición", 20, func(c *domain.Case) any { return formatTime(c.FechaDesaparicion) }},
	{"Dirección", 32, func(c *domain.Case) any { return c.DireccionTexto }},
	{"Latitud", 12, func(c *domain.Case) any { return c.UbicacionLatitud }},
	{"Longitud", 12, func(c *domain.Case) any { return c.UbicacionLongitud }},
	{"Descripción Hechos", 48, func(c *domain.Case) any { return c.DescripcionHechos }},
	{"Nombre Contacto", 24, func(c *domain.Case) any { return c.NombreContacto }},
	{"Teléfono Contacto", 18, func(c *domain.Case) any { return c.TelefonoContacto }},
	{"Correo Contacto", 28, func(c *domain.Case) any { return c.CorreoContacto }},
	{"Parentesco", 14, func(c *domain.Case) any { return c.Parentesco }},
	{"Reportero", 24, func(c *domain.Case) any { return c.ReporterNombre.String }},
	{"Fecha Creación", 20, func(c *domain.Case) any { return formatTime(c.FechaCreacion) }},
	{"Fecha Resolución", 20, func(c *domain.Case) any {
		if !c.FechaResolucion.Valid {
			return ""
		}
		return formatTime(c.FechaResolucion.Time)
	}},
}

// GenerateCaseExport renders cases as an xlsx workbook with a frozen,
// styled header row.
func GenerateCaseExport(cases []*domain.Case) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open, so Close is called explicitly below

	index, err := f.NewSheet(caseExportSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#FDE9D9"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range caseExportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(caseExportSheet, cell, col.header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(caseExportSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(caseExportSheet, name, name, col.width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for r, c := range cases {
		row := r + 2 // row 1 is the header
		for i, col := range caseExportColumns {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := f.SetCellValue(caseExportSheet, cell, col.value(c)); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, i+1, err)
			}
		}
	}

	if err := f.SetPanes(caseExportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
