package catalog

import (
	"bufio"
	"io"
	"strings"

	"github.com/tbourn/go-orcamento-backend/internal/proposal"
	"github.com/tbourn/go-orcamento-backend/internal/utils"
)

type columns struct {
	code, name, category, monthly, installation int
}

var noColumns = columns{-1, -1, -1, -1, -1}

// headerAliases maps folded header words to a column.
var headerAliases = map[string]string{
	"codigo": "code", "cod": "code", "sku": "code", "ref": "code",
	"equipamento": "name", "item": "name", "descricao": "name", "produto": "name", "nome": "name",
	"categoria": "category", "grupo": "category",
	"mensal": "monthly", "mensalidade": "monthly", "locacao": "monthly", "valor mensal": "monthly",
	"instalacao": "installation", "adesao": "installation", "setup": "installation", "valor instalacao": "installation",
}

// ParseMarkdown reads every Markdown table row in r as a price-list entry.
// A header row ("| Código | Equipamento | Mensal | Instalação |") maps the
// columns; without one the row is read positionally as name, monthly price,
// installation price. "## Heading" lines set the category of the rows below
// them when the table has no category column.
func ParseMarkdown(r io.Reader) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		out     []Entry
		cols    = noColumns
		heading string
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "#") {
			heading = strings.TrimSpace(strings.TrimLeft(line, "#"))
			cols = noColumns
			continue
		}
		if !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") {
			if line == "" {
				cols = noColumns
			}
			continue
		}

		cells := splitRow(line)
		if isSeparator(cells) {
			continue
		}
		if h, ok := detectHeader(cells); ok {
			cols = h
			continue
		}

		e := entryFrom(cells, cols)
		if e.Name == "" {
			continue
		}
		if e.Category == "" {
			e.Category = heading
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

func splitRow(line string) []string {
	raw := strings.Split(strings.Trim(line, "|"), "|")
	cells := make([]string, len(raw))
	for i, c := range raw {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}

func isSeparator(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, ":- ") != "" {
			return false
		}
	}
	return true
}

func detectHeader(cells []string) (columns, bool) {
	cols := noColumns
	hits := 0
	for i, c := range cells {
		key := strings.TrimSpace(strings.SplitN(utils.Fold(c), "(", 2)[0])
		switch headerAliases[key] {
		case "code":
			cols.code = i
		case "name":
			cols.name = i
		case "category":
			cols.category = i
		case "monthly":
			cols.monthly = i
		case "installation":
			cols.installation = i
		default:
			continue
		}
		hits++
	}
	return cols, hits >= 2 && cols.name >= 0
}

func entryFrom(cells []string, cols columns) Entry {
	at := func(i int) string {
		if i < 0 || i >= len(cells) {
			return ""
		}
		return cells[i]
	}
	money := func(s string) proposal.Money {
		if d, ok := proposal.ParseBRL(s); ok {
			return proposal.NewMoney(d)
		}
		return proposal.Money{}
	}

	if cols == noColumns {
		return Entry{Name: at(0), Monthly: money(at(1)), Installation: money(at(2))}
	}
	return Entry{
		Code:         at(cols.code),
		Name:         at(cols.name),
		Category:     at(cols.category),
		Monthly:      money(at(cols.monthly)),
		Installation: money(at(cols.installation)),
	}
}
