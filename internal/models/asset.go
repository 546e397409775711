package models

// AssetCategory groups assets for allocation breakdowns
type AssetCategory string

// Asset category constants
const (
	CategoryLayer1         AssetCategory = "layer1"
	CategoryDeFi           AssetCategory = "defi"
	CategoryExchange       AssetCategory = "exchange"
	CategoryStablecoin     AssetCategory = "stablecoin"
	CategoryInfrastructure AssetCategory = "infrastructure"
	CategoryMeme           AssetCategory = "meme"
)

// Valid reports whether c is one of the known categories
func (c AssetCategory) Valid() bool {
	switch c {
	case CategoryLayer1, CategoryDeFi, CategoryExchange, CategoryStablecoin, CategoryInfrastructure, CategoryMeme:
		return true
	}
	return false
}

// AssetDescriptor is a supported asset from the static catalog
type AssetDescriptor struct {
	ID       string        `json:"id"`
	Symbol   string        `json:"symbol"`
	Name     string        `json:"name"`
	Category AssetCategory `json:"category"`
}
