package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
)

// MarketOfferingInput is the registration payload for a market offering.
type MarketOfferingInput struct {
	Name        string `json:"marketofferingname" validate:"taxonomyname"`
	Description string `json:"marketofferingdescription"`
}

// LearningPillarInput is the registration payload for a learning pillar.
type LearningPillarInput struct {
	MarketOfferingID int64  `json:"marketofferingid" validate:"required,gt=0"`
	Name             string `json:"learningpillarname" validate:"taxonomyname"`
	Description      string `json:"learningpillardescription"`
}

// sharedLookupTimeout bounds a taxonomy lookup shared between callers.
const sharedLookupTimeout = 30 * time.Second

// TaxonomyService registers and validates market offerings and learning
// pillars. It implements TaxonomyValidator on top of a TaxonomyStore.
//
// Concurrent identical lookups share one store round-trip.
type TaxonomyService struct {
	store    TaxonomyStore
	validate *validator.Validate
	group    singleflight.Group
}

// NewTaxonomyService creates a taxonomy service backed by store.
func NewTaxonomyService(store TaxonomyStore) *TaxonomyService {
	return &TaxonomyService{store: store, validate: newValidator()}
}

// ValidateMarketOffering reports whether a market offering named name exists.
func (s *TaxonomyService) ValidateMarketOffering(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	return s.shared(ctx, "mo\x00"+name, func(ctx context.Context) (bool, error) {
		_, err := s.store.FindMarketOfferingByName(ctx, name)
		return found(err)
	})
}

// ValidateLearningPillar reports whether a learning pillar named name exists
// under any market offering.
func (s *TaxonomyService) ValidateLearningPillar(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	return s.shared(ctx, "lp\x00"+name, func(ctx context.Context) (bool, error) {
		return s.store.LearningPillarExists(ctx, name)
	})
}

// ValidatePairing reports whether learningPillar belongs to marketOffering.
func (s *TaxonomyService) ValidatePairing(ctx context.Context, marketOffering, learningPillar string) (bool, error) {
	if marketOffering == "" || learningPillar == "" {
		return false, nil
	}
	return s.shared(ctx, "pair\x00"+marketOffering+"\x00"+learningPillar, func(ctx context.Context) (bool, error) {
		mo, err := s.store.FindMarketOfferingByName(ctx, marketOffering)
		if ok, err := found(err); !ok {
			return false, err
		}
		_, err = s.store.FindLearningPillar(ctx, mo.ID, learningPillar)
		return found(err)
	})
}

// shared runs fn once for all concurrent callers of key. The lookup runs
// detached from the caller that started it, so a cancelled request only
// abandons its own wait.
func (s *TaxonomyService) shared(ctx context.Context, key string, fn func(context.Context) (bool, error)) (bool, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()
		return fn(lookupCtx)
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

// found converts a finder error to an existence answer.
func found(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// RegisterMarketOffering creates a market offering. It fails with
// ErrConflict if the name is already registered.
func (s *TaxonomyService) RegisterMarketOffering(ctx context.Context, in MarketOfferingInput) (MarketOffering, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return MarketOffering{}, validationError(err)
	}

	_, err := s.store.FindMarketOfferingByName(ctx, in.Name)
	if err == nil {
		return MarketOffering{}, fmt.Errorf("market offering %q: %w", in.Name, ErrConflict)
	}
	if !errors.Is(err, ErrNotFound) {
		return MarketOffering{}, dependencyFailure("taxonomy.find_market_offering", err)
	}

	mo, err := s.store.CreateMarketOffering(ctx, MarketOffering{Name: in.Name, Description: in.Description})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return MarketOffering{}, err
		}
		return MarketOffering{}, dependencyFailure("taxonomy.create_market_offering", err)
	}
	return mo, nil
}

// RegisterLearningPillar creates a learning pillar under an existing market
// offering. It fails with ErrNotFound if the market offering id is unknown
// and with ErrConflict if the pillar name is taken within that offering.
func (s *TaxonomyService) RegisterLearningPillar(ctx context.Context, in LearningPillarInput) (LearningPillar, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return LearningPillar{}, validationError(err)
	}

	if _, err := s.store.FindMarketOfferingByID(ctx, in.MarketOfferingID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return LearningPillar{}, fmt.Errorf("market offering with ID %d: %w", in.MarketOfferingID, ErrNotFound)
		}
		return LearningPillar{}, dependencyFailure("taxonomy.find_market_offering", err)
	}

	_, err := s.store.FindLearningPillar(ctx, in.MarketOfferingID, in.Name)
	if err == nil {
		return LearningPillar{}, fmt.Errorf("learning pillar %q for market offering %d: %w", in.Name, in.MarketOfferingID, ErrConflict)
	}
	if !errors.Is(err, ErrNotFound) {
		return LearningPillar{}, dependencyFailure("taxonomy.find_learning_pillar", err)
	}

	lp, err := s.store.CreateLearningPillar(ctx, LearningPillar{
		MarketOfferingID: in.MarketOfferingID,
		Name:             in.Name,
		Description:      in.Description,
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return LearningPillar{}, err
		}
		return LearningPillar{}, dependencyFailure("taxonomy.create_learning_pillar", err)
	}
	return lp, nil
}

// ListMarketOfferings returns every registered market offering.
func (s *TaxonomyService) ListMarketOfferings(ctx context.Context) ([]MarketOffering, error) {
	mos, err := s.store.ListMarketOfferings(ctx)
	if err != nil {
		return nil, dependencyFailure("taxonomy.list_market_offerings", err)
	}
	return mos, nil
}

// ListLearningPillars returns learning pillars, limited to one market
// offering when marketOfferingID is positive.
func (s *TaxonomyService) ListLearningPillars(ctx context.Context, marketOfferingID int64) ([]LearningPillar, error) {
	lps, err := s.store.ListLearningPillars(ctx, marketOfferingID)
	if err != nil {
		return nil, dependencyFailure("taxonomy.list_learning_pillars", err)
	}
	return lps, nil
}

// runTaxonomyCache memoises validator answers for the lifetime of one
// reconciliation run. Errors are not cached.
type runTaxonomyCache struct {
	next TaxonomyValidator

	mu      sync.Mutex
	answers map[string]bool
}

func newRunTaxonomyCache(next TaxonomyValidator) *runTaxonomyCache {
	return &runTaxonomyCache{next: next, answers: make(map[string]bool)}
}

func (c *runTaxonomyCache) ValidateMarketOffering(ctx context.Context, name string) (bool, error) {
	return c.memo("mo\x00"+name, func() (bool, error) {
		return c.next.ValidateMarketOffering(ctx, name)
	})
}

func (c *runTaxonomyCache) ValidateLearningPillar(ctx context.Context, name string) (bool, error) {
	return c.memo("lp\x00"+name, func() (bool, error) {
		return c.next.ValidateLearningPillar(ctx, name)
	})
}

func (c *runTaxonomyCache) ValidatePairing(ctx context.Context, marketOffering, learningPillar string) (bool, error) {
	return c.memo("pair\x00"+marketOffering+"\x00"+learningPillar, func() (bool, error) {
		return c.next.ValidatePairing(ctx, marketOffering, learningPillar)
	})
}

func (c *runTaxonomyCache) memo(key string, fn func() (bool, error)) (bool, error) {
	c.mu.Lock()
	v, ok := c.answers[key]
	c.mu.Unlock()
	if ok {
		return v, nil
	}

	v, err := fn()
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.answers[key] = v
	c.mu.Unlock()
	return v, nil
}

// newValidator returns a validator that reports json field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterAlias("taxonomyname", fmt.Sprintf("required,max=%d", MaxTaxonomyNameLength))
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError converts validator output into a RequestValidationError
// listing every failing field.
func validationError(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return &RequestValidationError{Message: err.Error()}
	}

	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msgs = append(msgs, fieldMessage(fe))
	}
	return &RequestValidationError{Message: strings.Join(msgs, "; ")}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.ActualTag() {
	case "required":
		return field + " should not be empty"
	case "email":
		return field + " must be an email"
	case "max":
		return field + " must be shorter than or equal to " + fe.Param() + " characters"
	case "min":
		return field + " must not be less than " + fe.Param()
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "datetime":
		return field + " must be a valid ISO 8601 date string"
	default:
		return field + " is invalid (" + fe.ActualTag() + ")"
	}
}
