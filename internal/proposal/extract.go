package proposal

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tbourn/go-orcamento-backend/internal/utils"
)

// Equipment is a name/quantity pair found in free text.
type Equipment struct {
	Name     string `json:"nome"`
	Quantity int    `json:"quantidade"`
}

var (
	// "2x Câmera dome", "- 3 × Sensor", "4 unidades de leitor facial"
	qtyFirstRE = regexp.MustCompile(`(?i)^(\d{1,4})\s*(?:x|×|un\.?|unid\.?|unidades?|pcs?)?\s+(?:de\s+)?(.{2,}?)$`)
	// "Câmera dome - 2 un", "Câmera dome: 2", "Câmera dome x2"
	qtyLastRE = regexp.MustCompile(`(?i)^(.{2,}?)\s*(?:[-–:=]|x|×)\s*(\d{1,4})\s*(?:x|un\.?|unid\.?|unidades?|pcs?)?\.?$`)
	// "Câmera dome (2)", "Câmera dome (2 un)"
	qtyParenRE = regexp.MustCompile(`(?i)^(.{2,}?)\s*\(\s*(\d{1,4})\s*(?:x|un\.?|unid\.?|unidades?|pcs?)?\s*\)`)

	bulletRE = regexp.MustCompile(`^\s*(?:[-*•+]|\d{1,3}[.)])\s+`)
	emphRE   = regexp.MustCompile(`[*_` + "`" + `]+`)
)

// ExtractEquipment scans text line by line for quantity/name patterns and
// returns the equipment found. Names that differ only by case or accents are
// merged, keeping the first spelling and the largest quantity. The result is
// for display only and never feeds pricing.
func ExtractEquipment(text string) []Equipment {
	var out []Equipment
	index := map[string]int{}

	for _, line := range strings.Split(text, "\n") {
		line = bulletRE.ReplaceAllString(line, "")
		line = strings.TrimSpace(emphRE.ReplaceAllString(line, ""))
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "|") {
			continue
		}

		name, qty, ok := matchEquipment(line)
		if !ok {
			continue
		}
		key := utils.Fold(name)
		if i, seen := index[key]; seen {
			if qty > out[i].Quantity {
				out[i].Quantity = qty
			}
			continue
		}
		index[key] = len(out)
		out = append(out, Equipment{Name: name, Quantity: qty})
	}
	return out
}

func matchEquipment(line string) (string, int, bool) {
	try := func(re *regexp.Regexp, nameIdx, qtyIdx int) (string, int, bool) {
		m := re.FindStringSubmatch(line)
		if m == nil {
			return "", 0, false
		}
		qty, err := strconv.Atoi(m[qtyIdx])
		if err != nil || qty <= 0 {
			return "", 0, false
		}
		name := strings.Trim(strings.TrimSpace(m[nameIdx]), ".,;:-–")
		if !plausibleName(name) {
			return "", 0, false
		}
		return name, qty, true
	}
	if n, q, ok := try(qtyParenRE, 1, 2); ok {
		return n, q, true
	}
	if n, q, ok := try(qtyFirstRE, 2, 1); ok {
		return n, q, true
	}
	return try(qtyLastRE, 1, 2)
}

// notEquipment lists folded words that mark a "label: number" line as a
// commercial term rather than equipment.
var notEquipment = []string{
	"valor", "total", "preco", "mensal", "instalacao", "desconto", "prazo",
	"dias", "meses", "contrato", "parcela", "telefone", "cep", "numero", "unidades habitacionais",
}

// plausibleName rejects money amounts, commercial terms and sentences.
func plausibleName(name string) bool {
	if len([]rune(name)) < 3 || len(strings.Fields(name)) > 8 {
		return false
	}
	low := utils.Fold(name)
	if strings.Contains(low, "r$") || strings.Contains(low, "%") {
		return false
	}
	for _, w := range notEquipment {
		if strings.Contains(low, w) {
			return false
		}
	}
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127 {
			return true
		}
	}
	return false
}
