// Package proposal models the commercial proposal synthesized from a quote
// conversation: grouped line items, ambients and free-text notes. It parses
// the model's output leniently, totals the items with decimal arithmetic and
// offers a best-effort equipment scan for proposals that are not JSON.
package proposal

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Proposal is the structured form of a synthesized proposal.
type Proposal struct {
	Client   string    `json:"cliente"            jsonschema_description:"Nome do cliente ou condomínio."`
	Summary  string    `json:"resumo"             jsonschema_description:"Resumo executivo da solução proposta."`
	Kits     []Item    `json:"kits"               jsonschema_description:"Kits fechados de equipamentos."`
	Items    []Item    `json:"itens"              jsonschema_description:"Itens avulsos."`
	Salvaged []Item    `json:"itens_aproveitados" jsonschema_description:"Equipamentos existentes do cliente que serão reaproveitados."`
	Services []Item    `json:"servicos"           jsonschema_description:"Serviços recorrentes ou pontuais."`
	Ambients []Ambient `json:"ambientes"          jsonschema_description:"Ambientes vistoriados e o que será instalado em cada um."`
	Notes    string    `json:"observacoes"        jsonschema_description:"Premissas e observações comerciais."`
}

// Item is one priced line.
type Item struct {
	Name         string   `json:"nome"`
	Code         string   `json:"codigo"`
	Quantity     Quantity `json:"quantidade"`
	Monthly      Money    `json:"valor_mensal"`
	Installation Money    `json:"valor_instalacao"`
	Discount     Percent  `json:"desconto_percentual"`
	Components   []string `json:"componentes,omitempty" jsonschema_description:"Composição do kit."`
	Photos       []string `json:"fotos,omitempty"       jsonschema_description:"Nomes dos arquivos de foto enviados que ilustram o item."`
}

// Priced reports whether the item carries at least one known price.
func (it Item) Priced() bool { return it.Monthly.Known || it.Installation.Known }

// Ambient is a surveyed area and the equipment planned for it.
type Ambient struct {
	Name        string   `json:"nome"`
	Description string   `json:"descricao,omitempty"`
	Equipment   []string `json:"equipamentos"`
	Photos      []string `json:"fotos,omitempty"`
}

// Group keys, in presentation order.
const (
	GroupKits     = "kits"
	GroupItems    = "itens"
	GroupSalvaged = "itens_aproveitados"
	GroupServices = "servicos"
)

// Group is a named slice of the proposal's items.
type Group struct {
	Key   string
	Label string
	Items []Item
}

// Groups returns the four item groups in presentation order, including
// empty ones.
func (p *Proposal) Groups() []Group {
	return []Group{
		{Key: GroupKits, Label: "Kits", Items: p.Kits},
		{Key: GroupItems, Label: "Itens avulsos", Items: p.Items},
		{Key: GroupSalvaged, Label: "Itens aproveitados", Items: p.Salvaged},
		{Key: GroupServices, Label: "Serviços", Items: p.Services},
	}
}

// Photos returns every photo file name referenced by items and ambients,
// deduplicated, in first-seen order.
func (p *Proposal) Photos() []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(names []string) {
		for _, n := range names {
			n = strings.TrimSpace(n)
			if n == "" {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	for _, g := range p.Groups() {
		for _, it := range g.Items {
			add(it.Photos)
		}
	}
	for _, a := range p.Ambients {
		add(a.Photos)
	}
	return out
}

func (p *Proposal) empty() bool {
	return strings.TrimSpace(p.Summary) == "" &&
		len(p.Kits) == 0 && len(p.Items) == 0 && len(p.Salvaged) == 0 &&
		len(p.Services) == 0 && len(p.Ambients) == 0
}

var fenceRE = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// Parse extracts a Proposal from the model's raw output. It accepts bare
// JSON, JSON wrapped in a Markdown code fence, and JSON embedded in prose.
// When no usable object is found it returns (nil, false) and callers keep the
// raw text as the proposal.
func Parse(raw string) (*Proposal, bool) {
	s := strings.TrimSpace(raw)
	if m := fenceRE.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var p Proposal
	if err := json.Unmarshal([]byte(s[start:end+1]), &p); err != nil {
		return nil, false
	}
	if p.empty() {
		return nil, false
	}
	p.normalize()
	return &p, true
}

// normalize drops nameless items and clamps quantities and discounts.
func (p *Proposal) normalize() {
	fix := func(items []Item) []Item {
		out := items[:0]
		for _, it := range items {
			it.Name = strings.TrimSpace(it.Name)
			if it.Name == "" {
				continue
			}
			it.Code = strings.TrimSpace(it.Code)
			if it.Quantity <= 0 {
				it.Quantity = 1
			}
			it.Discount = it.Discount.clamp()
			out = append(out, it)
		}
		return out
	}
	p.Client = strings.TrimSpace(p.Client)
	p.Kits = fix(p.Kits)
	p.Items = fix(p.Items)
	p.Salvaged = fix(p.Salvaged)
	p.Services = fix(p.Services)
}

// Marshal encodes p for storage.
func Marshal(p *Proposal) ([]byte, error) {
	return json.Marshal(p)
}

// Unmarshal decodes a stored structured proposal.
func Unmarshal(b []byte) (*Proposal, error) {
	var p Proposal
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
