package models

// CustomerConfig is the tenant-owned brand configuration document. It is
// stored wholesale as a single JSON document keyed by config key, so the
// json tags below are the wire and storage format.
type CustomerConfig struct {
	Customer Customer `json:"customer"`
}

// Customer is the root object of a CustomerConfig document.
type Customer struct {
	CustomerName       string     `json:"customerName"`
	IMSOrgID           string     `json:"imsOrgID,omitempty"`
	Brands             []Brand    `json:"brands"`
	Categories         []Category `json:"categories,omitempty"`
	Topics             []Topic    `json:"topics,omitempty"`
	AvailableVerticals []string   `json:"availableVerticals,omitempty"`
}

// Brand is an id-keyed entry in the document's brand roster. Removal is a
// status change, never a missing entry.
type Brand struct {
	ID             string          `json:"id"`
	Name           string          `json:"name,omitempty"`
	Status         string          `json:"status,omitempty"`
	Description    string          `json:"description,omitempty"`
	Vertical       string          `json:"vertical,omitempty"`
	Region         []string        `json:"region,omitempty"`
	URLs           []BrandURL      `json:"urls,omitempty"`
	BrandAliases   []BrandAlias    `json:"brandAliases,omitempty"`
	Competitors    []Competitor    `json:"competitors,omitempty"`
	SocialAccounts []SocialAccount `json:"socialAccounts,omitempty"`
	RelatedBrands  []RelatedBrand  `json:"relatedBrands,omitempty"`
	EarnedContent  []EarnedContent `json:"earnedContent,omitempty"`
	Prompts        []Prompt        `json:"prompts,omitempty"`
	UpdatedBy      string          `json:"updatedBy,omitempty"`
	UpdatedAt      string          `json:"updatedAt,omitempty"`
}

// Prompt is id-keyed within its parent brand's prompts list. Ids are not
// required to be unique across brands.
type Prompt struct {
	ID         string   `json:"id"`
	Prompt     string   `json:"prompt,omitempty"`
	Status     string   `json:"status,omitempty"`
	CategoryID string   `json:"categoryId,omitempty"`
	TopicID    string   `json:"topicId,omitempty"`
	Regions    []string `json:"regions,omitempty"`
	UpdatedBy  string   `json:"updatedBy,omitempty"`
	UpdatedAt  string   `json:"updatedAt,omitempty"`
}

type Category struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Origin string `json:"origin,omitempty"`
	Status string `json:"status,omitempty"`
}

type Topic struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
	Status     string `json:"status,omitempty"`
}

type BrandURL struct {
	Value   string   `json:"value"`
	Regions []string `json:"regions,omitempty"`
}

type BrandAlias struct {
	Name    string   `json:"name"`
	Regions []string `json:"regions,omitempty"`
}

type Competitor struct {
	Name    string   `json:"name"`
	URL     string   `json:"url,omitempty"`
	Regions []string `json:"regions,omitempty"`
}

type SocialAccount struct {
	Platform string   `json:"platform"`
	URL      string   `json:"url,omitempty"`
	Regions  []string `json:"regions,omitempty"`
}

type RelatedBrand struct {
	Name    string   `json:"name"`
	URL     string   `json:"url,omitempty"`
	Regions []string `json:"regions,omitempty"`
}

type EarnedContent struct {
	Name          string   `json:"name"`
	Type          string   `json:"type,omitempty"`
	CoverageScope string   `json:"coverage_scope,omitempty"`
	URL           string   `json:"url,omitempty"`
	Regions       []string `json:"regions,omitempty"`
}

// PartialCustomerConfig is the PATCH body for a customer config. Pointer
// fields distinguish "absent, keep the stored value" (nil) from "present,
// apply this value" (set). A present-but-empty list clears the stored list.
type PartialCustomerConfig struct {
	Customer *PartialCustomer `json:"customer"`
}

type PartialCustomer struct {
	CustomerName       *string           `json:"customerName,omitempty"`
	IMSOrgID           *string           `json:"imsOrgID,omitempty"`
	Brands             []PartialBrand    `json:"brands,omitempty"`
	Categories         []PartialCategory `json:"categories,omitempty"`
	Topics             []PartialTopic    `json:"topics,omitempty"`
	AvailableVerticals *[]string         `json:"availableVerticals,omitempty"`
}

// PartialBrand patches one brand entry, matched by id. The id-less
// sub-lists (urls, brandAliases, competitors, socialAccounts,
// relatedBrands, earnedContent, region) replace the stored list wholesale
// when present; prompts reconcile item-wise by id.
type PartialBrand struct {
	ID             string           `json:"id"`
	Name           *string          `json:"name,omitempty"`
	Status         *string          `json:"status,omitempty"`
	Description    *string          `json:"description,omitempty"`
	Vertical       *string          `json:"vertical,omitempty"`
	Region         *[]string        `json:"region,omitempty"`
	URLs           *[]BrandURL      `json:"urls,omitempty"`
	BrandAliases   *[]BrandAlias    `json:"brandAliases,omitempty"`
	Competitors    *[]Competitor    `json:"competitors,omitempty"`
	SocialAccounts *[]SocialAccount `json:"socialAccounts,omitempty"`
	RelatedBrands  *[]RelatedBrand  `json:"relatedBrands,omitempty"`
	EarnedContent  *[]EarnedContent `json:"earnedContent,omitempty"`
	Prompts        []PartialPrompt  `json:"prompts,omitempty"`
}

type PartialPrompt struct {
	ID         string    `json:"id"`
	Prompt     *string   `json:"prompt,omitempty"`
	Status     *string   `json:"status,omitempty"`
	CategoryID *string   `json:"categoryId,omitempty"`
	TopicID    *string   `json:"topicId,omitempty"`
	Regions    *[]string `json:"regions,omitempty"`
}

type PartialCategory struct {
	ID     string  `json:"id"`
	Name   *string `json:"name,omitempty"`
	Origin *string `json:"origin,omitempty"`
	Status *string `json:"status,omitempty"`
}

type PartialTopic struct {
	ID         string  `json:"id"`
	Name       *string `json:"name,omitempty"`
	CategoryID *string `json:"categoryId,omitempty"`
	Status     *string `json:"status,omitempty"`
}

// EntityStats counts one entity class after a merge. Modified includes
// added entities; Added counts only entities with no stored counterpart.
type EntityStats struct {
	Total    int `json:"total"`
	Modified int `json:"modified"`
	Added    int `json:"added"`
}

// MergeStats summarizes a merge per entity class. Prompts aggregate
// across every brand in the merged document.
type MergeStats struct {
	Brands     EntityStats `json:"brands"`
	Prompts    EntityStats `json:"prompts"`
	Categories EntityStats `json:"categories"`
	Topics     EntityStats `json:"topics"`
}
