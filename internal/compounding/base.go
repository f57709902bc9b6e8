package compounding

import (
	"math"
	"strings"
)

// Mode 基质标准化的计算模式
type Mode string

const (
	// ModeMassToVolume 固定质量 -> 计算体积
	ModeMassToVolume Mode = "mass"
	// ModeVolumeToMass 固定体积 -> 计算质量
	ModeVolumeToMass Mode = "volume"
	// ModeDeriveConcentration 推导最终浓度
	ModeDeriveConcentration Mode = "concentration"
)

// ParseMode 解析计算模式，兼容 "mass"/"volume"/"concentration" 与驼峰名称
// 未知值原样返回，由 Compute 视为无效
func ParseMode(raw string) Mode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "mass", "masstovolume", "mass_to_volume":
		return ModeMassToVolume
	case "volume", "volumetomass", "volume_to_mass":
		return ModeVolumeToMass
	case "concentration", "deriveconcentration", "derive_concentration":
		return ModeDeriveConcentration
	default:
		return Mode(raw)
	}
}

// Known 是否为已知模式
func (m Mode) Known() bool {
	switch m {
	case ModeMassToVolume, ModeVolumeToMass, ModeDeriveConcentration:
		return true
	}
	return false
}

// BaseInputs 基质（Pasta Base）标准化输入，数值字段均为表单原始文本
type BaseInputs struct {
	Mode                       Mode        `json:"mode"`
	ExtractType                ExtractType `json:"extract_type"`
	PotencyPercent             string      `json:"potency_percent"`
	ExtractMassGrams           string      `json:"extract_mass_g"`
	TargetConcentrationMgPerMl string      `json:"target_concentration_mg_ml"`
	TargetVolumeMl             string      `json:"target_volume_ml"`
}

// BaseResult 基质标准化结果
// IsValid=false 时所有数值字段均为 0
type BaseResult struct {
	TotalActiveMg             float64 `json:"total_active_mg"`
	FinalVolumeMl             float64 `json:"final_volume_ml"`
	DiluentToAddMl            float64 `json:"diluent_to_add_ml"`
	ExtractMassGrams          float64 `json:"extract_mass_g"`
	FinalConcentrationMgPerMl float64 `json:"final_concentration_mg_ml"`
	IsValid                   bool    `json:"is_valid"`
}

// BaseStandardizer 基质标准化计算器（纯函数，无状态）
type BaseStandardizer struct {
	densities DensityTable
}

// NewBaseStandardizer 创建计算器；densities 为 nil 时使用默认密度
func NewBaseStandardizer(densities DensityTable) *BaseStandardizer {
	if densities == nil {
		densities = DefaultDensities()
	}
	return &BaseStandardizer{densities: densities}
}

var defaultStandardizer = NewBaseStandardizer(nil)

// ComputeBase 使用默认密度计算基质
func ComputeBase(in BaseInputs) BaseResult {
	return defaultStandardizer.Compute(in)
}

// Density 当前输入对应的提取物密度
func (s *BaseStandardizer) Density(t ExtractType) float64 {
	return s.densities.Density(t)
}

// Compute 计算基质标准化结果
// 任意输入缺失、非数字、为零或为负，以及效价 > 100 时返回全零无效结果
func (s *BaseStandardizer) Compute(in BaseInputs) BaseResult {
	potency, ok := ParsePositive(in.PotencyPercent)
	if !ok || potency > 100 {
		return BaseResult{}
	}
	density := s.densities.Density(in.ExtractType)

	// 溢出（例如质量 1e308）时整体无效，不返回部分结果
	overflow := false
	round := func(x float64) float64 {
		if !isFinite(x) {
			overflow = true
			return 0
		}
		return Round2(x)
	}

	var r BaseResult
	switch in.Mode {
	case ModeMassToVolume:
		mass, okM := ParsePositive(in.ExtractMassGrams)
		conc, okC := ParsePositive(in.TargetConcentrationMgPerMl)
		if !okM || !okC {
			return BaseResult{}
		}
		r.TotalActiveMg = round(mass * 1000 * (potency / 100))
		r.FinalVolumeMl = round(r.TotalActiveMg / conc)
		r.DiluentToAddMl = round(math.Max(0, r.FinalVolumeMl-mass*density))
		r.ExtractMassGrams = mass
		r.FinalConcentrationMgPerMl = conc

	case ModeVolumeToMass:
		volume, okV := ParsePositive(in.TargetVolumeMl)
		conc, okC := ParsePositive(in.TargetConcentrationMgPerMl)
		if !okV || !okC {
			return BaseResult{}
		}
		r.TotalActiveMg = round(volume * conc)
		r.ExtractMassGrams = round(r.TotalActiveMg / (1000 * (potency / 100)))
		r.DiluentToAddMl = round(math.Max(0, volume-r.ExtractMassGrams*density))
		r.FinalVolumeMl = volume
		r.FinalConcentrationMgPerMl = conc

	case ModeDeriveConcentration:
		mass, okM := ParsePositive(in.ExtractMassGrams)
		volume, okV := ParsePositive(in.TargetVolumeMl)
		if !okM || !okV {
			return BaseResult{}
		}
		r.TotalActiveMg = round(mass * 1000 * (potency / 100))
		r.FinalConcentrationMgPerMl = round(r.TotalActiveMg / volume)
		r.DiluentToAddMl = round(math.Max(0, volume-mass*density))
		r.FinalVolumeMl = volume
		r.ExtractMassGrams = mass

	default:
		return BaseResult{}
	}

	if overflow {
		return BaseResult{}
	}
	r.IsValid = true
	return r
}
