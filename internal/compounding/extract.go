package compounding

import "strings"

// DefaultExtractDensity 提取物假定密度（g/ml），用于把提取物质量换算为其贡献的体积
const DefaultExtractDensity = 0.9

// ExtractType 提取物基质类型
type ExtractType string

const (
	ExtractRosin   ExtractType = "rosin"   // Rosin（无溶剂）
	ExtractRSO     ExtractType = "rso"     // RSO / FECO（全谱提取物）
	ExtractIsolate ExtractType = "isolado" // 分离物 / 馏出物
)

// ExtractTypes 所有已知的提取物类型（界面展示顺序）
var ExtractTypes = []ExtractType{ExtractRosin, ExtractRSO, ExtractIsolate}

// Label 文档中使用的显示名称
func (t ExtractType) Label() string {
	switch t {
	case ExtractRosin:
		return "Rosin (Sem Solvente)"
	case ExtractRSO:
		return "RSO / FECO"
	case ExtractIsolate:
		return "Isolados / Destilados"
	default:
		return string(t)
	}
}

// Known 是否为已知类型
func (t ExtractType) Known() bool {
	for _, k := range ExtractTypes {
		if t == k {
			return true
		}
	}
	return false
}

// ParseExtractType 解析提取物类型（大小写不敏感，未知值原样保留）
func ParseExtractType(raw string) ExtractType {
	return ExtractType(strings.ToLower(strings.TrimSpace(raw)))
}

// DensityTable 每种提取物的密度覆盖值（g/ml）
// 未配置或非正值时使用 DefaultExtractDensity
type DensityTable map[ExtractType]float64

// DefaultDensities 所有类型都使用默认密度
func DefaultDensities() DensityTable {
	table := make(DensityTable, len(ExtractTypes))
	for _, t := range ExtractTypes {
		table[t] = DefaultExtractDensity
	}
	return table
}

// Density 返回指定类型的密度
func (d DensityTable) Density(t ExtractType) float64 {
	if v, ok := d[t]; ok && v > 0 && isFinite(v) {
		return v
	}
	return DefaultExtractDensity
}
