package report

import (
	"math"
	"strconv"
	"strings"

	"github.com/caramaschiHG/Dilutio/internal/compounding"
)

// Step 制备步骤（粗体标题 + 正文）
type Step struct {
	Title string
	Text  string
}

// Guideline BPL（良好实验室规范）条目
type Guideline struct {
	Title string
	Text  string
}

// GLPGuidelines 文档末尾的通用 BPL 指引
var GLPGuidelines = []Guideline{
	{
		Title: "Seleção de Veículo Lipídico",
		Text:  "O emprego de Triglicerídeos de Cadeia Média (TCM) é considerado a prática padrão devido à sua neutralidade organoléptica, resistência à oxidação lipídica, estabilidade sob refrigeração e perfil farmacocinético otimizado.",
	},
	{
		Title: "Protocolos de Assepsia",
		Text:  "É imperativa a sanitização prévia de todas as superfícies de contato, instrumentos de medição e vidrarias utilizando Álcool Isopropílico a 70% ou 99%.",
	},
	{
		Title: "Acondicionamento e Estabilidade",
		Text:  "Armazenar as formulações de estoque (Pasta Base) em recipientes de vidro âmbar, hermeticamente selados, mantidos em ambiente refrigerado ou sob temperatura controlada, e ao abrigo da incidência luminosa.",
	},
}

// PreparationSteps 按提取物类型生成基质制备步骤，未知类型返回 nil
func PreparationSteps(t compounding.ExtractType, base compounding.BaseResult) []Step {
	mass := formatNumber(base.ExtractMassGrams)
	diluent := formatNumber(base.DiluentToAddMl)
	volume := formatNumber(base.FinalVolumeMl)

	switch t {
	case compounding.ExtractRosin:
		return []Step{
			{"Aferição de Massa", "Pesar " + mass + "g do extrato Rosin em um béquer de vidro borossilicato."},
			{"Descarboxilação Térmica", "Submeter o béquer a aquecimento (110°C a 120°C). Observar efervescência (liberação de CO2). Manter até cessação quase total (30 a 45 min). Não exceder 120°C."},
			{"Resfriamento Controlado", "Interromper calor e permitir redução gradual até 60°C a 70°C."},
			{"Incorporação do Veículo", "Adicionar exatamente " + diluent + " ml de veículo lipídico (pré-aquecido a ~40°C)."},
			{"Homogeneização", "Submeter à agitação magnética ou mecânica rigorosa (50°C) por 15 a 20 minutos, até aspecto translúcido."},
			{"Envase", "Proceder ao fracionamento em recipientes de vidro âmbar. O volume final estimado é de " + volume + " ml."},
		}
	case compounding.ExtractRSO:
		return []Step{
			{"Validação de Descarboxilação", "Analisar metodologia pregressa. Se evaporado a frio, requer descarboxilação (110°C-120°C)."},
			{"Condicionamento Térmico", "Aquecimento prévio do recipiente original em banho-maria (50°C a 60°C) para adequação da viscosidade."},
			{"Aferição e Transferência", "Pesar " + mass + "g do extrato no béquer calibrado."},
			{"Adição do Veículo Lipídico", "Incorporar exatamente " + diluent + " ml de veículo lipídico."},
			{"Homogeneização Alta Intens.", "Agitação magnética acoplada a aquecimento (50°C a 60°C) por no mínimo 30 minutos."},
			{"Filtração (Recomendado)", "Filtrar a solução ainda aquecida (0,22 um a 0,45 um ou papel filtro) para retenção de ceras."},
			{"Envase Final", "Transferir a solução purificada. O volume final estimado é de " + volume + " ml."},
		}
	case compounding.ExtractIsolate:
		return []Step{
			{"Aferição de Massa", "Proceder à pesagem de " + mass + "g do insumo cristalino ou destilado."},
			{"Adição do Veículo Lipídico", "Incorporar exatamente " + diluent + " ml de veículo lipídico."},
			{"Homogeneização Branda", "Aplicar aquecimento moderado (40°C a 50°C). Promover agitação por 5 a 10 minutos."},
			{"Infusão Terpênica (Opcional)", "Adicionar terpenos isolados em temperaturas < 40°C (1% a 3% do volume total)."},
			{"Envase Final", "Realizar o fracionamento imediatamente após homogeneização. O volume final estimado é de " + volume + " ml."},
		}
	default:
		return nil
	}
}

// formatNumber 两位小数；NaN / ±Inf 输出 "0.00"
func formatNumber(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "0.00"
	}
	return strconv.FormatFloat(x, 'f', 2, 64)
}

// formatRaw 表单原始文本按数字格式化；空白视为 0，非数字输出 "0.00"
func formatRaw(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "0.00"
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "0.00"
	}
	return formatNumber(v)
}
