package compounding

// Summary 批次汇总：患者错误检测、分装需求合计、基质供给是否充足
type Summary struct {
	HasErrors              bool    `json:"has_errors"`
	TotalAliquotRequiredMl float64 `json:"total_aliquot_required_ml"`
	BasePasteSufficient    bool    `json:"base_paste_sufficient"`
}

// Summarize 汇总基质结果与患者分装结果（不可行的记录不计入需求）
func Summarize(base BaseResult, patients []PatientResult) Summary {
	var s Summary
	aliquots := make([]float64, 0, len(patients))
	for _, p := range patients {
		if p.IsError {
			s.HasErrors = true
			continue
		}
		aliquots = append(aliquots, p.AliquotVolumeMl)
	}
	s.TotalAliquotRequiredMl = sumRounded(aliquots)
	s.BasePasteSufficient = base.IsValid && s.TotalAliquotRequiredMl <= base.FinalVolumeMl
	return s
}

// Shortfall 需求超出基质产量的体积（充足时为 0）
func (s Summary) Shortfall(base BaseResult) float64 {
	if !base.IsValid || s.BasePasteSufficient {
		return 0
	}
	return Round2(s.TotalAliquotRequiredMl - base.FinalVolumeMl)
}
