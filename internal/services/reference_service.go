// Package services – ReferenceService
//
// ReferenceService assembles the grounding section appended to the model's
// system prompt: a bounded sample of recent deals and customers plus the
// catalog entries closest to the latest user turn. The section is advisory;
// it always carries a disclaimer that the values are not a price list.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-orcamento-backend/internal/cache"
	"github.com/tbourn/go-orcamento-backend/internal/catalog"
	"github.com/tbourn/go-orcamento-backend/internal/domain"
	"github.com/tbourn/go-orcamento-backend/internal/proposal"
	"github.com/tbourn/go-orcamento-backend/internal/repo"
)

// ReferenceProvider builds the reference section for a query.
type ReferenceProvider interface {
	Context(ctx context.Context, query string) string
}

const referenceDisclaimer = "Os dados abaixo são apenas referência histórica e não constituem tabela de preços. " +
	"Itens sem valor conhecido devem ser apresentados como \"sob consulta\"."

// ReferenceService implements ReferenceProvider.
type ReferenceService struct {
	DB      *gorm.DB
	Catalog catalog.Index
	Cache   cache.Cache

	// SampleSize bounds deals and customers each (<= 30); 0 disables them.
	SampleSize int
	CacheTTL   time.Duration
	// CatalogHits is how many catalog entries to include per query.
	CatalogHits int
}

type referenceSample struct {
	Deals     []domain.Deal     `json:"deals"`
	Customers []domain.Customer `json:"customers"`
}

// Context returns the reference section, or "" when there is nothing to say.
// Failures of the database or cache degrade the section, never the call.
func (s *ReferenceService) Context(ctx context.Context, query string) string {
	var b strings.Builder

	sample := s.sample(ctx)
	if len(sample.Deals) > 0 {
		b.WriteString("### Negócios recentes\n")
		for _, d := range sample.Deals {
			b.WriteString("- " + dealLine(d) + "\n")
		}
	}
	if len(sample.Customers) > 0 {
		b.WriteString("### Clientes atendidos\n")
		for _, c := range sample.Customers {
			b.WriteString("- " + customerLine(c) + "\n")
		}
	}

	if s.Catalog != nil && s.Catalog.Len() > 0 && strings.TrimSpace(query) != "" {
		k := s.CatalogHits
		if k <= 0 {
			k = 8
		}
		if hits := s.Catalog.TopK(query, k); len(hits) > 0 {
			b.WriteString("### Itens do catálogo relacionados\n")
			for _, h := range hits {
				b.WriteString("- " + h.Entry.Line() + "\n")
			}
		}
	}

	if b.Len() == 0 {
		return ""
	}
	return "## Dados de referência\n" + referenceDisclaimer + "\n\n" + strings.TrimRight(b.String(), "\n")
}

func (s *ReferenceService) sample(ctx context.Context) referenceSample {
	var out referenceSample
	if s.DB == nil || s.SampleSize <= 0 {
		return out
	}
	n := s.SampleSize
	if n > repo.MaxReferenceRows {
		n = repo.MaxReferenceRows
	}
	key := "reference:sample:" + strconv.Itoa(n)

	if s.Cache != nil {
		b, ok, err := s.Cache.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Msg("reference cache read failed")
		} else if ok {
			if err := json.Unmarshal(b, &out); err == nil {
				return out
			}
		}
	}

	deals, err := repo.RecentDeals(ctx, s.DB, n)
	if err != nil {
		log.Warn().Err(err).Msg("reference deals unavailable")
	}
	customers, err := repo.RecentCustomers(ctx, s.DB, n)
	if err != nil {
		log.Warn().Err(err).Msg("reference customers unavailable")
	}
	out = referenceSample{Deals: deals, Customers: customers}

	if s.Cache != nil && (len(deals) > 0 || len(customers) > 0) {
		ttl := s.CacheTTL
		if ttl <= 0 {
			ttl = 10 * time.Minute
		}
		if b, err := json.Marshal(out); err == nil {
			if err := s.Cache.Set(ctx, key, b, ttl); err != nil {
				log.Warn().Err(err).Msg("reference cache write failed")
			}
		}
	}
	return out
}

func dealLine(d domain.Deal) string {
	parts := []string{d.Title}
	if d.ClientName != "" {
		parts = append(parts, "cliente: "+d.ClientName)
	}
	if d.Stage != "" {
		parts = append(parts, "status: "+d.Stage)
	}
	if d.MonthlyValue.IsPositive() {
		parts = append(parts, "mensal: "+proposal.FormatBRL(d.MonthlyValue))
	}
	if d.SetupValue.IsPositive() {
		parts = append(parts, "instalação: "+proposal.FormatBRL(d.SetupValue))
	}
	if e := strings.TrimSpace(d.Equipment); e != "" {
		parts = append(parts, "equipamentos: "+strings.Join(strings.Fields(e), " "))
	}
	if d.ClosedAt != nil {
		parts = append(parts, "fechado em "+d.ClosedAt.Format("01/2006"))
	}
	return strings.Join(parts, " | ")
}

func customerLine(c domain.Customer) string {
	s := c.Name
	var attrs []string
	if c.Kind != "" {
		attrs = append(attrs, c.Kind)
	}
	if c.City != "" {
		attrs = append(attrs, c.City)
	}
	if c.Units > 0 {
		attrs = append(attrs, fmt.Sprintf("%d unidades", c.Units))
	}
	if len(attrs) > 0 {
		s += " (" + strings.Join(attrs, ", ") + ")"
	}
	return s
}
