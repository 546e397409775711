// Package catalog holds the static list of supported assets.
// Asset ids are CoinGecko coin ids so they can be passed upstream unchanged.
package catalog

import (
	"strings"

	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// suggestionLimit is how many entries Search returns for an empty query
const suggestionLimit = 8

var coreAssets = []models.AssetDescriptor{
	{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Category: models.CategoryLayer1},
	{ID: "ethereum", Symbol: "ETH", Name: "Ethereum", Category: models.CategoryLayer1},
	{ID: "solana", Symbol: "SOL", Name: "Solana", Category: models.CategoryLayer1},
	{ID: "cardano", Symbol: "ADA", Name: "Cardano", Category: models.CategoryLayer1},
	{ID: "avalanche-2", Symbol: "AVAX", Name: "Avalanche", Category: models.CategoryLayer1},
	{ID: "polkadot", Symbol: "DOT", Name: "Polkadot", Category: models.CategoryLayer1},
	{ID: "near", Symbol: "NEAR", Name: "NEAR Protocol", Category: models.CategoryLayer1},
	{ID: "uniswap", Symbol: "UNI", Name: "Uniswap", Category: models.CategoryDeFi},
	{ID: "aave", Symbol: "AAVE", Name: "Aave", Category: models.CategoryDeFi},
	{ID: "maker", Symbol: "MKR", Name: "Maker", Category: models.CategoryDeFi},
	{ID: "lido-dao", Symbol: "LDO", Name: "Lido DAO", Category: models.CategoryDeFi},
	{ID: "curve-dao-token", Symbol: "CRV", Name: "Curve DAO", Category: models.CategoryDeFi},
	{ID: "binancecoin", Symbol: "BNB", Name: "BNB", Category: models.CategoryExchange},
	{ID: "okb", Symbol: "OKB", Name: "OKB", Category: models.CategoryExchange},
	{ID: "crypto-com-chain", Symbol: "CRO", Name: "Cronos", Category: models.CategoryExchange},
	{ID: "tether", Symbol: "USDT", Name: "Tether", Category: models.CategoryStablecoin},
	{ID: "usd-coin", Symbol: "USDC", Name: "USD Coin", Category: models.CategoryStablecoin},
	{ID: "dai", Symbol: "DAI", Name: "Dai", Category: models.CategoryStablecoin},
	{ID: "chainlink", Symbol: "LINK", Name: "Chainlink", Category: models.CategoryInfrastructure},
	{ID: "matic-network", Symbol: "MATIC", Name: "Polygon", Category: models.CategoryInfrastructure},
	{ID: "the-graph", Symbol: "GRT", Name: "The Graph", Category: models.CategoryInfrastructure},
	{ID: "filecoin", Symbol: "FIL", Name: "Filecoin", Category: models.CategoryInfrastructure},
	{ID: "dogecoin", Symbol: "DOGE", Name: "Dogecoin", Category: models.CategoryMeme},
	{ID: "shiba-inu", Symbol: "SHIB", Name: "Shiba Inu", Category: models.CategoryMeme},
	{ID: "pepe", Symbol: "PEPE", Name: "Pepe", Category: models.CategoryMeme},
}

var byID = func() map[string]models.AssetDescriptor {
	m := make(map[string]models.AssetDescriptor, len(coreAssets))
	for _, a := range coreAssets {
		m[a.ID] = a
	}
	return m
}()

// All returns a copy of every supported asset in catalog order
func All() []models.AssetDescriptor {
	out := make([]models.AssetDescriptor, len(coreAssets))
	copy(out, coreAssets)
	return out
}

// FindByID looks up an asset by its id
func FindByID(id string) (models.AssetDescriptor, bool) {
	a, ok := byID[id]
	return a, ok
}

// FindBySymbol looks up an asset by ticker, ignoring case.
// Symbols are not guaranteed unique; the first catalog entry wins.
func FindBySymbol(symbol string) (models.AssetDescriptor, bool) {
	symbol = strings.TrimSpace(symbol)
	for _, a := range coreAssets {
		if strings.EqualFold(a.Symbol, symbol) {
			return a, true
		}
	}
	return models.AssetDescriptor{}, false
}

// Search returns assets whose name or symbol contains query, ignoring case.
// An empty query returns the first few catalog entries as suggestions.
func Search(query string) []models.AssetDescriptor {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		n := min(suggestionLimit, len(coreAssets))
		return All()[:n]
	}

	var out []models.AssetDescriptor
	for _, a := range coreAssets {
		if strings.Contains(strings.ToLower(a.Name), q) || strings.Contains(strings.ToLower(a.Symbol), q) {
			out = append(out, a)
		}
	}
	return out
}

// Filter trims ids, drops blanks, duplicates and ids not in the catalog.
// First-occurrence order is kept.
func Filter(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := byID[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
