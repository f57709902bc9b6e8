package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	firstCol = 1 // A
	lastCol  = 6 // F
)

// sheetWriter 逐行写入工作表，记录第一个错误后停止写入
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	err   error

	titleStyle   int
	sectionStyle int
	labelStyle   int
	boldStyle    int
	headerStyle  int
	cellStyle    int
	wrapStyle    int
	lineStyle    int
}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
}

func newSheetWriter(f *excelize.File, sheet string) (*sheetWriter, error) {
	w := &sheetWriter{f: f, sheet: sheet, row: 1}

	styles := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&w.titleStyle, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}}},
		{&w.sectionStyle, &excelize.Style{
			Font:   &excelize.Font{Bold: true, Size: 12},
			Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
		}},
		{&w.labelStyle, &excelize.Style{
			Font:   &excelize.Font{Bold: true},
			Fill:   excelize.Fill{Type: "pattern", Color: []string{"#F3F4F6"}, Pattern: 1},
			Border: thinBorder,
		}},
		{&w.boldStyle, &excelize.Style{Font: &excelize.Font{Bold: true}, Border: thinBorder}},
		{&w.headerStyle, &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E5E7EB"}, Pattern: 1},
			Border:    thinBorder,
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		}},
		{&w.cellStyle, &excelize.Style{
			Border:    thinBorder,
			Alignment: &excelize.Alignment{Horizontal: "center"},
		}},
		{&w.wrapStyle, &excelize.Style{
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		}},
		{&w.lineStyle, &excelize.Style{
			Border:    []excelize.Border{{Type: "top", Color: "000000", Style: 1}},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		}},
	}
	for _, s := range styles {
		id, err := f.NewStyle(s.style)
		if err != nil {
			return nil, fmt.Errorf("failed to create style: %w", err)
		}
		*s.dst = id
	}

	// 列宽
	if err := f.SetColWidth(sheet, "A", "A", 28); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(sheet, "B", "F", 18); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	return w, nil
}

func (w *sheetWriter) cell(col int) string {
	name, err := excelize.CoordinatesToCellName(col, w.row)
	if err != nil && w.err == nil {
		w.err = fmt.Errorf("failed to convert coordinates: %w", err)
	}
	return name
}

func (w *sheetWriter) set(col int, value interface{}, style int) {
	if w.err != nil {
		return
	}
	c := w.cell(col)
	if err := w.f.SetCellValue(w.sheet, c, value); err != nil {
		w.err = fmt.Errorf("failed to set cell %s: %w", c, err)
		return
	}
	if style != 0 {
		if err := w.f.SetCellStyle(w.sheet, c, c, style); err != nil {
			w.err = fmt.Errorf("failed to set style for %s: %w", c, err)
		}
	}
}

// merge 合并当前行 [from, to] 列并对整个区域应用样式
func (w *sheetWriter) merge(from, to, style int) {
	if w.err != nil || from == to {
		return
	}
	start, end := w.cell(from), w.cell(to)
	if err := w.f.MergeCell(w.sheet, start, end); err != nil {
		w.err = fmt.Errorf("failed to merge %s:%s: %w", start, end, err)
		return
	}
	if style != 0 {
		if err := w.f.SetCellStyle(w.sheet, start, end, style); err != nil {
			w.err = fmt.Errorf("failed to set style for %s:%s: %w", start, end, err)
		}
	}
}

func (w *sheetWriter) height(h float64) {
	if w.err != nil {
		return
	}
	if err := w.f.SetRowHeight(w.sheet, w.row, h); err != nil {
		w.err = fmt.Errorf("failed to set row height: %w", err)
	}
}

func (w *sheetWriter) next() { w.row++ }

func (w *sheetWriter) blank() { w.next() }

func (w *sheetWriter) title(text string) {
	w.set(firstCol, text, w.titleStyle)
	w.merge(firstCol, lastCol, w.titleStyle)
	w.next()
}

func (w *sheetWriter) subtitle(text string) {
	w.set(firstCol, text, 0)
	w.merge(firstCol, lastCol, 0)
	w.next()
}

func (w *sheetWriter) section(text string) {
	w.set(firstCol, text, w.sectionStyle)
	w.merge(firstCol, lastCol, w.sectionStyle)
	w.next()
}

// field 标签（A 列）+ 值（B:F 合并）
func (w *sheetWriter) field(label, value string, bold bool) {
	style := 0
	if bold {
		style = w.boldStyle
	}
	w.set(firstCol, label, w.labelStyle)
	w.set(firstCol+1, value, style)
	w.merge(firstCol+1, lastCol, style)
	w.next()
}

func (w *sheetWriter) paragraph(text string) {
	w.set(firstCol, text, w.wrapStyle)
	w.merge(firstCol, lastCol, w.wrapStyle)
	w.height(48)
	w.next()
}

// step 编号（A 列）+ 步骤正文（B:F 合并）
func (w *sheetWriter) step(number, text string) {
	w.set(firstCol, number, 0)
	w.set(firstCol+1, text, w.wrapStyle)
	w.merge(firstCol+1, lastCol, w.wrapStyle)
	w.height(36)
	w.next()
}

func (w *sheetWriter) tableHeader(headers []string) {
	for i, h := range headers {
		w.set(firstCol+i, h, w.headerStyle)
	}
	w.height(30)
	w.next()
}

func (w *sheetWriter) tableRow(values []string) {
	for i, v := range values {
		style := w.cellStyle
		if i == 3 || i == 4 {
			style = w.boldStyle
		}
		w.set(firstCol+i, v, style)
	}
	w.next()
}

// signatures 签名栏：上方横线，下方姓名与职责
func (w *sheetWriter) signatures(left, right [2]string) {
	cols := [2][2]int{{firstCol, firstCol + 1}, {lastCol - 1, lastCol}}
	for line := 0; line < 2; line++ {
		for i, who := range [2][2]string{left, right} {
			style := 0
			if line == 0 {
				style = w.lineStyle
			}
			w.set(cols[i][0], who[line], style)
			w.merge(cols[i][0], cols[i][1], style)
		}
		w.next()
	}
}
