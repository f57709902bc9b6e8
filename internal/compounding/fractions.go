package compounding

// PatientRecord 患者处方（界面列表项），数值字段为表单原始文本
type PatientRecord struct {
	ID                         string `json:"id"`
	Name                       string `json:"name"`
	TargetConcentrationMgPerMl string `json:"target_concentration_mg_ml"`
	BottleVolumeMl             string `json:"bottle_volume_ml"`
}

// PatientResult 单个患者的分装结果
// DiluentVolumeMl = round2(瓶体积 - 分装量)，可能为负
// IsError 当且仅当分装量 > 瓶体积
type PatientResult struct {
	PatientRecord
	AliquotVolumeMl float64 `json:"aliquot_volume_ml"`
	DiluentVolumeMl float64 `json:"diluent_volume_ml"`
	IsError         bool    `json:"is_error"`
}

// ComputeFractions 按基质浓度为每个患者计算分装量和补充溶剂量
// 输出与输入一一对应（顺序、长度不变）；缺失/无效输入得到全零且 IsError=false
func ComputeFractions(records []PatientRecord, baseConcentrationMgPerMl float64) []PatientResult {
	out := make([]PatientResult, len(records))
	baseOK := isFinite(baseConcentrationMgPerMl) && baseConcentrationMgPerMl > 0
	for i, rec := range records {
		out[i] = fraction(rec, baseConcentrationMgPerMl, baseOK)
	}
	return out
}

func fraction(rec PatientRecord, base float64, baseOK bool) PatientResult {
	res := PatientResult{PatientRecord: rec}
	if !baseOK {
		return res
	}
	target, okT := ParsePositive(rec.TargetConcentrationMgPerMl)
	bottle, okB := ParsePositive(rec.BottleVolumeMl)
	if !okT || !okB {
		return res
	}

	raw := (target * bottle) / base
	if !isFinite(raw) {
		return res
	}
	res.AliquotVolumeMl = Round2(raw)
	res.DiluentVolumeMl = Round2(bottle - res.AliquotVolumeMl)
	res.IsError = res.AliquotVolumeMl > bottle
	return res
}
