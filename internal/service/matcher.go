package service

import (
	"context"
	"maps"
	"slices"
	"sort"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/config"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/domain"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/geo"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/repository"
)

const DefaultMatchLimit = 3

// Match аптека-кандидат и расстояние до пользователя
type Match struct {
	Pharmacy   domain.Pharmacy `json:"pharmacy"`
	DistanceKm float64         `json:"distance_km"`
}

type MatcherOptions struct {
	Limit int
	// Fallback подставляется вместо отсутствующих координат аптеки
	Fallback geo.Point
	// AnyResidual: аптека покрывает препарат при residual > 0, даже если остатка
	// меньше запрошенного. Включается при политике backorder.
	AnyResidual bool
}

// MatcherOptionsFromConfig порог покрытия зависит от STOCK_POLICY: при abort
// предлагаются только аптеки, где хватит остатка на весь заказ
func MatcherOptionsFromConfig(cfg config.Config) MatcherOptions {
	return MatcherOptions{
		Limit:       cfg.MatchLimit,
		Fallback:    geo.Point{Lat: cfg.FallbackLatitude, Lon: cfg.FallbackLongitude},
		AnyResidual: cfg.StockPolicy == config.StockPolicyBackorder,
	}
}

// Matcher подбирает аптеки, в которых есть весь набор препаратов, ближайшие первыми
type Matcher struct {
	pharmacies repository.PharmacyRepository
	stock      repository.StockRepository
	opts       MatcherOptions
}

func NewMatcher(pharmacies repository.PharmacyRepository, stock repository.StockRepository, opts MatcherOptions) *Matcher {
	if opts.Limit <= 0 {
		opts.Limit = DefaultMatchLimit
	}
	return &Matcher{pharmacies: pharmacies, stock: stock, opts: opts}
}

// Find required: drug id -> количество. Без покрытия возвращает пустой список, не ошибку.
// Split-pharmacy заказы не предлагаются: аптека должна закрывать все препараты.
func (m *Matcher) Find(ctx context.Context, required map[int64]int64, at geo.Point) ([]Match, error) {
	if !at.Valid() {
		return nil, ErrInvalidInput
	}
	for id, qty := range required {
		if id <= 0 || qty < 0 {
			return nil, ErrInvalidInput
		}
	}

	active, err := m.pharmacies.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	covered := make(map[int64]int, len(active))
	if len(required) > 0 {
		ids := slices.Sorted(maps.Keys(required))
		rows, err := m.stock.ListAvailable(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			need := max(1, required[row.DrugID])
			if m.opts.AnyResidual {
				need = 1
			}
			if row.Residual >= need {
				covered[row.PharmacyID]++
			}
		}
	}

	out := make([]Match, 0, m.opts.Limit)
	for _, ph := range active {
		if covered[ph.ID] < len(required) {
			continue
		}
		pos := geo.PointOr(ph.Latitude, ph.Longitude, m.opts.Fallback)
		out = append(out, Match{Pharmacy: ph, DistanceKm: geo.Distance(at, pos)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].Pharmacy.ID < out[j].Pharmacy.ID
	})
	if len(out) > m.opts.Limit {
		out = out[:m.opts.Limit]
	}
	return out, nil
}
