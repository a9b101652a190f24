package merging

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Ramsey-B/sage/pkg/models"
)

// DefaultActor attributes changes when the caller has no authenticated
// identity to offer.
const DefaultActor = "system"

var (
	// ErrInvalidInput means the incoming patch carries no customer object
	// and nothing can be merged.
	ErrInvalidInput = errors.New("invalid input: missing customer object")

	// ErrInvalidMergedConfig means the merged document violates the
	// customer config invariants and must not be persisted.
	ErrInvalidMergedConfig = errors.New("invalid merged config")
)

// Result is the outcome of one merge: the document to persist and the
// per-entity-class change statistics.
type Result struct {
	Config *models.CustomerConfig
	Stats  models.MergeStats
}

var (
	// brand comparison ignores modification metadata and the prompt list,
	// which reconciles independently
	brandExclusions = map[string]bool{"updatedBy": true, "updatedAt": true, "prompts": true}

	// prompt comparison ignores modification metadata
	promptExclusions = map[string]bool{"updatedBy": true, "updatedAt": true}
)

// Merge reconciles an incoming partial customer config against the stored
// document and returns the merged result. Entities (brands, prompts,
// categories, topics) match by id: matched entries are overlaid attribute by
// attribute, unmatched incoming entries are appended, and stored entries the
// patch never names survive untouched. The merge never deletes.
//
// An entity only counts as modified, and only gets fresh updatedBy/updatedAt
// metadata, when the overlay genuinely changed it; re-sending stored values
// leaves the stored metadata exactly as it was. Validation runs once, on the
// final merged document.
//
// existing may be nil (first write for a config key). actor attributes the
// changes; empty falls back to DefaultActor. now feeds the updatedAt stamps.
func Merge(existing *models.CustomerConfig, incoming *models.PartialCustomerConfig, actor string, now time.Time) (*Result, error) {
	if incoming == nil || incoming.Customer == nil {
		return nil, ErrInvalidInput
	}
	if actor == "" {
		actor = DefaultActor
	}

	patch := incoming.Customer

	var base models.Customer
	if existing != nil {
		base = existing.Customer
	}

	merged := base
	if patch.CustomerName != nil {
		merged.CustomerName = *patch.CustomerName
	}
	if patch.IMSOrgID != nil {
		merged.IMSOrgID = *patch.IMSOrgID
	}
	if patch.AvailableVerticals != nil {
		merged.AvailableVerticals = slices.Clone(*patch.AvailableVerticals)
	}

	stamp := now.UTC().Format(time.RFC3339)
	var stats models.MergeStats

	merged.Brands, stats.Brands = reconcileByID(
		base.Brands, patch.Brands,
		func(b models.Brand) string { return b.ID },
		func(p models.PartialBrand) string { return p.ID },
		func(current *models.Brand, p models.PartialBrand) (models.Brand, bool) {
			return applyBrandPatch(current, p, actor, stamp, &stats.Prompts)
		},
		func(b *models.Brand) {
			b.UpdatedBy = actor
			b.UpdatedAt = stamp
		},
	)

	merged.Categories, stats.Categories = reconcileByID(
		base.Categories, patch.Categories,
		func(c models.Category) string { return c.ID },
		func(p models.PartialCategory) string { return p.ID },
		applyCategoryPatch,
		nil,
	)

	merged.Topics, stats.Topics = reconcileByID(
		base.Topics, patch.Topics,
		func(t models.Topic) string { return t.ID },
		func(p models.PartialTopic) string { return p.ID },
		applyTopicPatch,
		nil,
	)

	// the prompt total spans every brand in the merged document, including
	// brands the patch never named
	stats.Prompts.Total = 0
	for _, b := range merged.Brands {
		stats.Prompts.Total += len(b.Prompts)
	}

	config := &models.CustomerConfig{Customer: merged}
	if err := validateMerged(config); err != nil {
		return nil, err
	}

	return &Result{Config: config, Stats: stats}, nil
}

// applyBrandPatch overlays a brand patch onto its stored counterpart. Scalar
// fields overwrite when present; the id-less sub-lists (region, urls,
// brandAliases, competitors, socialAccounts, relatedBrands, earnedContent)
// replace the stored list wholesale when present; prompts reconcile by id
// with their stats accumulated across all patched brands. The returned bool
// covers the brand's own attributes only, so prompt churn alone never marks
// the brand modified or refreshes its metadata.
func applyBrandPatch(current *models.Brand, patch models.PartialBrand, actor, stamp string, promptStats *models.EntityStats) (models.Brand, bool) {
	var base models.Brand
	if current != nil {
		base = *current
	} else {
		base = models.Brand{ID: patch.ID}
	}

	candidate := base
	if patch.Name != nil {
		candidate.Name = *patch.Name
	}
	if patch.Status != nil {
		candidate.Status = *patch.Status
	}
	if patch.Description != nil {
		candidate.Description = *patch.Description
	}
	if patch.Vertical != nil {
		candidate.Vertical = *patch.Vertical
	}
	if patch.Region != nil {
		candidate.Region = slices.Clone(*patch.Region)
	}
	if patch.URLs != nil {
		candidate.URLs = slices.Clone(*patch.URLs)
	}
	if patch.BrandAliases != nil {
		candidate.BrandAliases = slices.Clone(*patch.BrandAliases)
	}
	if patch.Competitors != nil {
		candidate.Competitors = slices.Clone(*patch.Competitors)
	}
	if patch.SocialAccounts != nil {
		candidate.SocialAccounts = slices.Clone(*patch.SocialAccounts)
	}
	if patch.RelatedBrands != nil {
		candidate.RelatedBrands = slices.Clone(*patch.RelatedBrands)
	}
	if patch.EarnedContent != nil {
		candidate.EarnedContent = slices.Clone(*patch.EarnedContent)
	}

	changed := current == nil || !equalIgnoring(base, candidate, brandExclusions)

	prompts, promptChanges := reconcileByID(
		base.Prompts, patch.Prompts,
		func(p models.Prompt) string { return p.ID },
		func(p models.PartialPrompt) string { return p.ID },
		func(cur *models.Prompt, pp models.PartialPrompt) (models.Prompt, bool) {
			return applyPromptPatch(cur, pp)
		},
		func(p *models.Prompt) {
			p.UpdatedBy = actor
			p.UpdatedAt = stamp
		},
	)
	candidate.Prompts = prompts
	promptStats.Modified += promptChanges.Modified
	promptStats.Added += promptChanges.Added

	return candidate, changed
}

func applyPromptPatch(current *models.Prompt, patch models.PartialPrompt) (models.Prompt, bool) {
	var base models.Prompt
	if current != nil {
		base = *current
	} else {
		base = models.Prompt{ID: patch.ID}
	}

	candidate := base
	if patch.Prompt != nil {
		candidate.Prompt = *patch.Prompt
	}
	if patch.Status != nil {
		candidate.Status = *patch.Status
	}
	if patch.CategoryID != nil {
		candidate.CategoryID = *patch.CategoryID
	}
	if patch.TopicID != nil {
		candidate.TopicID = *patch.TopicID
	}
	if patch.Regions != nil {
		candidate.Regions = slices.Clone(*patch.Regions)
	}

	changed := current == nil || !equalIgnoring(base, candidate, promptExclusions)
	return candidate, changed
}

func applyCategoryPatch(current *models.Category, patch models.PartialCategory) (models.Category, bool) {
	var base models.Category
	if current != nil {
		base = *current
	} else {
		base = models.Category{ID: patch.ID}
	}

	candidate := base
	if patch.Name != nil {
		candidate.Name = *patch.Name
	}
	if patch.Origin != nil {
		candidate.Origin = *patch.Origin
	}
	if patch.Status != nil {
		candidate.Status = *patch.Status
	}

	changed := current == nil || !equalIgnoring(base, candidate, nil)
	return candidate, changed
}

func applyTopicPatch(current *models.Topic, patch models.PartialTopic) (models.Topic, bool) {
	var base models.Topic
	if current != nil {
		base = *current
	} else {
		base = models.Topic{ID: patch.ID}
	}

	candidate := base
	if patch.Name != nil {
		candidate.Name = *patch.Name
	}
	if patch.CategoryID != nil {
		candidate.CategoryID = *patch.CategoryID
	}
	if patch.Status != nil {
		candidate.Status = *patch.Status
	}

	changed := current == nil || !equalIgnoring(base, candidate, nil)
	return candidate, changed
}

// validateMerged enforces the customer config invariants on the final merged
// document. customerName must be non-empty and brands must be present, if
// only as an empty list.
func validateMerged(config *models.CustomerConfig) error {
	if strings.TrimSpace(config.Customer.CustomerName) == "" {
		return fmt.Errorf("%w: customerName is required", ErrInvalidMergedConfig)
	}
	if config.Customer.Brands == nil {
		return fmt.Errorf("%w: brands must be a list", ErrInvalidMergedConfig)
	}
	return nil
}
