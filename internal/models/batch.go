package models

import "github.com/caramaschiHG/Dilutio/internal/compounding"

// BatchCalculation 一次完整重算的结果（基质 + 患者分装 + 汇总）
type BatchCalculation struct {
	Base     compounding.BaseResult      `json:"base"`
	Patients []compounding.PatientResult `json:"patients"`
	Summary  compounding.Summary         `json:"summary"`
}

// BaseRequest 基质计算请求（字段保留表单原始文本）
type BaseRequest struct {
	Mode                       string `json:"mode"`
	ExtractType                string `json:"extract_type"`
	PotencyPercent             string `json:"potency_percent"`
	ExtractMassGrams           string `json:"extract_mass_g"`
	TargetConcentrationMgPerMl string `json:"target_concentration_mg_ml"`
	TargetVolumeMl             string `json:"target_volume_ml"`
}

// Inputs 转换为核心输入
func (r BaseRequest) Inputs() compounding.BaseInputs {
	return compounding.BaseInputs{
		Mode:                       compounding.ParseMode(r.Mode),
		ExtractType:                compounding.ParseExtractType(r.ExtractType),
		PotencyPercent:             r.PotencyPercent,
		ExtractMassGrams:           r.ExtractMassGrams,
		TargetConcentrationMgPerMl: r.TargetConcentrationMgPerMl,
		TargetVolumeMl:             r.TargetVolumeMl,
	}
}

// FractionsRequest 患者分装计算请求
type FractionsRequest struct {
	BaseConcentrationMgPerMl float64                     `json:"base_concentration_mg_ml"`
	Patients                 []compounding.PatientRecord `json:"patients"`
}

// BatchRequest 批次计算请求
type BatchRequest struct {
	Base     BaseRequest                 `json:"base"`
	Patients []compounding.PatientRecord `json:"patients"`
}

// POPRequest 生成 POP 文档请求
// BatchNumber / IssueDate 为空时由服务端生成
type POPRequest struct {
	Type        string                      `json:"type"` // "base" 或 "full"
	Technician  string                      `json:"technician"`
	BatchNumber string                      `json:"batch_number,omitempty"`
	IssueDate   string                      `json:"issue_date,omitempty"`
	Base        BaseRequest                 `json:"base"`
	Patients    []compounding.PatientRecord `json:"patients"`
}

// ExtractTypeInfo 提取物类型信息
type ExtractTypeInfo struct {
	Type    string  `json:"type"`
	Label   string  `json:"label"`
	Density float64 `json:"density_g_ml"`
}
