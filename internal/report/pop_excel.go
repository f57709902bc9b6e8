package report

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/caramaschiHG/Dilutio/internal/compounding"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrBaseInvalid 基质计算无效时不能生成 POP
	ErrBaseInvalid = errors.New("base paste calculation is not valid")
	// ErrTechnicianRequired 缺少负责技术员
	ErrTechnicianRequired = errors.New("responsible technician is required")
	// ErrInfeasiblePatients 完整 POP 中存在分装量超过瓶体积的患者
	ErrInfeasiblePatients = errors.New("batch has infeasible patient prescriptions")
	// ErrUnknownDocumentType 未知文档类型
	ErrUnknownDocumentType = errors.New("unknown POP document type")
)

// DocumentType POP 文档类型
type DocumentType string

const (
	// DocumentBase 仅基质标准化
	DocumentBase DocumentType = "base"
	// DocumentFull 基质 + 患者分装表
	DocumentFull DocumentType = "full"
)

// ParseDocumentType 解析文档类型
func ParseDocumentType(raw string) (DocumentType, error) {
	switch DocumentType(strings.ToLower(strings.TrimSpace(raw))) {
	case DocumentBase:
		return DocumentBase, nil
	case DocumentFull:
		return DocumentFull, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDocumentType, raw)
	}
}

// POPDocument 生成 POP 工作簿所需的全部数据
type POPDocument struct {
	Type           DocumentType
	BatchNumber    string
	IssueDate      string
	Technician     string
	ExtractType    compounding.ExtractType
	PotencyPercent string // 表单原始文本
	Base           compounding.BaseResult
	Patients       []compounding.PatientResult
}

// Validate 检查生成前置条件
func (d POPDocument) Validate() error {
	if d.Type != DocumentBase && d.Type != DocumentFull {
		return fmt.Errorf("%w: %q", ErrUnknownDocumentType, d.Type)
	}
	if !d.Base.IsValid {
		return ErrBaseInvalid
	}
	if strings.TrimSpace(d.Technician) == "" {
		return ErrTechnicianRequired
	}
	if d.Type == DocumentFull {
		for _, p := range d.Patients {
			if p.IsError {
				return ErrInfeasiblePatients
			}
		}
	}
	return nil
}

// FileName 下载文件名
func (d POPDocument) FileName() string {
	return "POP_" + d.BatchNumber + ".xlsx"
}

const popSheet = "POP"

// PatientTableHeader 分装表表头
var PatientTableHeader = []string{
	"Paciente / ID",
	"Conc. Alvo (mg/ml)",
	"Vol. Frasco (ml)",
	"Alíquota Base (ml)",
	"Veículo Comp. (ml)",
	"Check",
}

// GeneratePOP 生成 POP（Procedimento Operacional Padrão）Excel 工作簿
func GeneratePOP(doc POPDocument) ([]byte, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	// Note: WriteTo 需要文件保持打开，出错时再关闭

	index, err := f.NewSheet(popSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "POP_" + doc.BatchNumber,
		Creator: doc.Technician,
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set document properties: %w", err)
	}

	w, err := newSheetWriter(f, popSheet)
	if err != nil {
		f.Close()
		return nil, err
	}
	writePOP(w, doc)
	if w.err != nil {
		f.Close()
		return nil, w.err
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

func writePOP(w *sheetWriter, doc POPDocument) {
	// 表头
	w.title("Procedimento Operacional Padrão")
	if doc.Type == DocumentBase {
		w.subtitle("Padronização de Matriz Extrativa (Pasta Base)")
	} else {
		w.subtitle("Fracionamento de Extrato Canabinoide")
	}
	w.field("Lote:", doc.BatchNumber, false)
	w.field("Data:", doc.IssueDate, false)
	w.field("Técnico:", doc.Technician, false)
	w.blank()

	// 1. 原始数据与追溯
	w.section("1. Dados Brutos e Rastreabilidade")
	w.field("Tipo de Matriz", doc.ExtractType.Label(), false)
	w.field("Massa Bruta do Extrato", formatNumber(doc.Base.ExtractMassGrams)+" g", false)
	w.field("Potência (COA)", formatRaw(doc.PotencyPercent)+" %", false)
	w.field("Massa Total (Ativo)", formatNumber(doc.Base.TotalActiveMg)+" mg", true)
	w.blank()

	// 2. 基质制备
	w.section("2. Preparação da Pasta Base (Instância A)")
	w.paragraph("Objetivo: Produzir " + formatNumber(doc.Base.FinalVolumeMl) +
		" ml de solução estoque com concentração de " + formatNumber(doc.Base.FinalConcentrationMgPerMl) + " mg/ml.")
	for i, s := range PreparationSteps(doc.ExtractType, doc.Base) {
		w.step(strconv.Itoa(i+1)+".", s.Title+": "+s.Text)
	}
	w.blank()

	sectionNo := 3
	if doc.Type == DocumentFull {
		// 3. 患者分装表
		w.section("3. Tabela de Fracionamento Final (Instância B)")
		w.tableHeader(PatientTableHeader)
		for i, p := range doc.Patients {
			name := p.Name
			if strings.TrimSpace(name) == "" {
				name = "Paciente " + strconv.Itoa(i+1)
			}
			w.tableRow([]string{
				name,
				formatRaw(p.TargetConcentrationMgPerMl),
				formatRaw(p.BottleVolumeMl),
				formatNumber(p.AliquotVolumeMl),
				formatNumber(p.DiluentVolumeMl),
				"☐",
			})
		}
		w.blank()
		sectionNo = 4
	}

	// BPL 指引
	w.section(strconv.Itoa(sectionNo) + ". Diretrizes Gerais de BPL")
	for _, g := range GLPGuidelines {
		w.paragraph(g.Title + ": " + g.Text)
	}
	w.blank()
	w.blank()

	// 签名
	w.signatures(
		[2]string{strings.TrimSpace(doc.Technician), "Manipulação"},
		[2]string{"Analista de Qualidade", "Conferência e Liberação"},
	)
}

